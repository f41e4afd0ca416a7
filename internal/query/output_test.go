package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyOutputValidJSON(t *testing.T) {
	tests := []string{
		`[]`,
		`[{"name": "test"}]`,
		`{"ok": 1}`,
		`42`,
		`3.14`,
	}

	for _, raw := range tests {
		result, err := ClassifyOutput(raw, "users", "appdb")
		require.NoError(t, err, "raw %q", raw)
		assert.Equal(t, raw, result)
	}
}

func TestClassifyOutputTrimsWhitespace(t *testing.T) {
	result, err := ClassifyOutput("  [1,2]\n", "users", "appdb")
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", result)
}

func TestClassifyOutputEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		_, err := ClassifyOutput(raw, "users", "appdb")
		require.Error(t, err, "raw %q", raw)
		assert.Contains(t, err.Error(), "'users'")
		assert.Contains(t, err.Error(), "list_collections")
	}
}

func TestClassifyOutputNotFound(t *testing.T) {
	raw := "MongoServerError: ns not found"
	_, err := ClassifyOutput(raw, "users", "appdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in database 'appdb'")
	assert.Contains(t, err.Error(), "list_collections")
	assert.Contains(t, err.Error(), raw)
}

func TestClassifyOutputAuthFailure(t *testing.T) {
	raw := "MongoServerError: Authentication failed."
	_, err := ClassifyOutput(raw, "users", "appdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
	assert.Contains(t, err.Error(), raw)
}

func TestClassifyOutputTimeout(t *testing.T) {
	raw := "MongoServerError: operation timed out"
	_, err := ClassifyOutput(raw, "users", "appdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query timed out")
	assert.Contains(t, err.Error(), "countDocuments")
}

func TestClassifyOutputSyntax(t *testing.T) {
	raw := "MongoServerError: Invalid pipeline stage"
	_, err := ClassifyOutput(raw, "users", "appdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid query syntax")
}

func TestClassifyOutputGenericMongoError(t *testing.T) {
	raw := "MongoError: something unexpected"
	_, err := ClassifyOutput(raw, "users", "appdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MongoDB error")
	assert.Contains(t, err.Error(), raw)
}

func TestClassifyOutputPriorityOrder(t *testing.T) {
	// not-found outranks the timeout marker when both substrings appear
	raw := "MongoServerError: ns not found after timeout"
	_, err := ClassifyOutput(raw, "users", "appdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in database")
}

func TestClassifyOutputUnparseable(t *testing.T) {
	_, err := ClassifyOutput("mongosh splash banner text", "users", "appdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse query result")
	assert.Contains(t, err.Error(), "mongosh splash banner text")
	assert.Contains(t, err.Error(), "Parse error")
}
