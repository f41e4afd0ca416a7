package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperation(t *testing.T) {
	tests := []struct {
		input   string
		want    Operation
		wantErr bool
	}{
		{"find", OpFind, false},
		{"FIND", OpFind, false},
		{"aggregate", OpAggregate, false},
		{"countDocuments", OpCountDocuments, false},
		{"countdocuments", OpCountDocuments, false},
		{"distinct", OpDistinct, false},
		{"insert", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		op, err := ParseOperation(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			assert.Contains(t, err.Error(), "find, aggregate, countDocuments, distinct")
		} else {
			require.NoError(t, err, "input %q", tt.input)
			assert.Equal(t, tt.want, op)
		}
	}
}

func TestCompileFind(t *testing.T) {
	params, err := Compile(OpFind, `{"status": "active"}`, Options{})
	require.NoError(t, err)

	assert.Equal(t, OpFind, params.Op)
	assert.Equal(t, `{"status": "active"}`, params.Filter)
	assert.Equal(t, "{}", params.Projection)
	assert.Empty(t, params.Sort)
	assert.Zero(t, params.Limit)
}

func TestCompileFindWithOptions(t *testing.T) {
	opts := Options{
		Limit:      10,
		Sort:       `{"createdAt": -1}`,
		Projection: `{"name": 1}`,
	}
	params, err := Compile(OpFind, `{}`, opts)
	require.NoError(t, err)

	assert.Equal(t, int64(10), params.Limit)
	assert.Equal(t, `{"createdAt": -1}`, params.Sort)
	assert.Equal(t, `{"name": 1}`, params.Projection)
}

func TestCompileFindInvalidInputs(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		opts    Options
		wantMsg string
	}{
		{"malformed query", "not valid json", Options{}, "query is not a valid JSON object"},
		{"unclosed query", "{unclosed", Options{}, "query is not a valid JSON object"},
		{"array query", "[1,2]", Options{}, "query is not a valid JSON object"},
		{"bad sort", "{}", Options{Sort: "desc"}, "sort is not a valid JSON object"},
		{"bad projection", "{}", Options{Projection: "name"}, "projection is not a valid JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(OpFind, tt.query, tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestCompileAggregate(t *testing.T) {
	params, err := Compile(OpAggregate, `[{"$match": {}}, {"$group": {"_id": "$status"}}]`, Options{})
	require.NoError(t, err)
	assert.Equal(t, `[{"$match": {}}, {"$group": {"_id": "$status"}}]`, params.Pipeline)

	_, err = Compile(OpAggregate, `{"$match": {}}`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON array of stages")
}

func TestCompileAggregateIgnoresFindOptions(t *testing.T) {
	// limit/sort/projection are dropped, not errored, for non-find operations
	params, err := Compile(OpAggregate, `[{"$match": {}}]`, Options{Limit: 5, Sort: `{"a": 1}`})
	require.NoError(t, err)
	assert.Zero(t, params.Limit)
	assert.Empty(t, params.Sort)
}

func TestCompileCountDocuments(t *testing.T) {
	params, err := Compile(OpCountDocuments, `{"active": true}`, Options{})
	require.NoError(t, err)
	assert.Equal(t, `{"active": true}`, params.Filter)
}

func TestCompileDistinctNewShape(t *testing.T) {
	params, err := Compile(OpDistinct, `{"active":true}`, Options{DistinctField: "country"})
	require.NoError(t, err)

	assert.Equal(t, "country", params.DistinctField)
	assert.Equal(t, `{"active":true}`, params.Filter)
}

func TestCompileDistinctLegacyShape(t *testing.T) {
	params, err := Compile(OpDistinct, `{"field":"country","query":{"active":true}}`, Options{})
	require.NoError(t, err)

	assert.Equal(t, "country", params.DistinctField)
	assert.Equal(t, `{"active":true}`, params.Filter)
}

func TestCompileDistinctShapeEquivalence(t *testing.T) {
	// The two accepted distinct shapes must compile to identical parameters
	newShape, err := Compile(OpDistinct, `{"active":true}`, Options{DistinctField: "country"})
	require.NoError(t, err)

	legacy, err := Compile(OpDistinct, `{"field":"country","query":{"active":true}}`, Options{})
	require.NoError(t, err)

	assert.Equal(t, newShape, legacy)
}

func TestCompileDistinctNewShapePrecedence(t *testing.T) {
	// When both shapes could apply, the distinct-field option wins and the
	// query text is the filter directly.
	params, err := Compile(OpDistinct, `{"field":"ignored","query":{}}`, Options{DistinctField: "country"})
	require.NoError(t, err)

	assert.Equal(t, "country", params.DistinctField)
	assert.Equal(t, `{"field":"ignored","query":{}}`, params.Filter)
}

func TestCompileDistinctLegacyDefaults(t *testing.T) {
	params, err := Compile(OpDistinct, `{"field":"email"}`, Options{})
	require.NoError(t, err)

	assert.Equal(t, "email", params.DistinctField)
	assert.Equal(t, "{}", params.Filter)
}

func TestCompileDistinctMissingField(t *testing.T) {
	_, err := Compile(OpDistinct, `{}`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distinct_field")

	_, err = Compile(OpDistinct, `{"query": {}}`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distinct_field")
}

func TestCompileDeterminism(t *testing.T) {
	cases := []struct {
		op    Operation
		query string
		opts  Options
	}{
		{OpFind, `{"a": 1}`, Options{Limit: 3, Sort: `{"b": -1}`}},
		{OpAggregate, `[{"$match": {"x": true}}]`, Options{}},
		{OpCountDocuments, `{}`, Options{}},
		{OpDistinct, `{"active":true}`, Options{DistinctField: "country"}},
	}

	for _, tc := range cases {
		first, err := Compile(tc.op, tc.query, tc.opts)
		require.NoError(t, err)
		second, err := Compile(tc.op, tc.query, tc.opts)
		require.NoError(t, err)
		assert.Equal(t, first, second, "op %s", tc.op)

		firstScript, err := first.EvalScript("users")
		require.NoError(t, err)
		secondScript, err := second.EvalScript("users")
		require.NoError(t, err)
		assert.Equal(t, firstScript, secondScript, "op %s", tc.op)
	}
}
