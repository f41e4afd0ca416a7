package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileScript(t *testing.T, op Operation, queryText string, opts Options, collection string) string {
	t.Helper()
	params, err := Compile(op, queryText, opts)
	require.NoError(t, err)
	script, err := params.EvalScript(collection)
	require.NoError(t, err)
	return script
}

func TestEvalScriptFind(t *testing.T) {
	script := compileScript(t, OpFind, "{}", Options{}, "users")
	assert.Equal(t, `JSON.stringify(db["users"].find({}, {}).toArray())`, script)
}

func TestEvalScriptFindWithOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{
			"limit",
			Options{Limit: 10},
			`JSON.stringify(db["users"].find({}, {}).limit(10).toArray())`,
		},
		{
			"sort and limit",
			Options{Limit: 5, Sort: `{"createdAt": -1}`},
			`JSON.stringify(db["users"].find({}, {}).sort({"createdAt": -1}).limit(5).toArray())`,
		},
		{
			"projection",
			Options{Projection: `{"name": 1}`},
			`JSON.stringify(db["users"].find({}, {"name": 1}).toArray())`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compileScript(t, OpFind, "{}", tt.opts, "users"))
		})
	}
}

func TestEvalScriptAggregate(t *testing.T) {
	script := compileScript(t, OpAggregate, `[{"$match": {}}]`, Options{}, "users")
	assert.Equal(t, `JSON.stringify(db["users"].aggregate([{"$match": {}}]).toArray())`, script)
}

func TestEvalScriptCountDocumentsNotWrapped(t *testing.T) {
	script := compileScript(t, OpCountDocuments, "{}", Options{}, "users")
	assert.Equal(t, `db["users"].countDocuments({})`, script)
	assert.NotContains(t, script, "JSON.stringify")
}

func TestEvalScriptDistinct(t *testing.T) {
	script := compileScript(t, OpDistinct, `{"field": "email", "query": {}}`, Options{}, "users")
	assert.Equal(t, `JSON.stringify(db["users"].distinct("email", {}))`, script)

	script = compileScript(t, OpDistinct, `{"active":true}`, Options{DistinctField: "country"}, "users")
	assert.Equal(t, `JSON.stringify(db["users"].distinct("country", {"active":true}))`, script)
}

func TestEvalScriptEscapesCollectionName(t *testing.T) {
	// A hostile collection name must stay inside an escaped bracket
	// subscript, never become executable script text.
	script := compileScript(t, OpFind, "{}", Options{}, `a"; drop(); //`)

	assert.Contains(t, script, `["a\"; drop(); //"]`)
	assert.NotContains(t, script, "db.a")
	assert.True(t, strings.HasPrefix(script, `JSON.stringify(db["`))
}

func TestEvalScriptEscapesDistinctField(t *testing.T) {
	script := compileScript(t, OpDistinct, `{"field": "test\"field", "query": {}}`, Options{}, "users")
	assert.Contains(t, script, `"test\"field"`)
}

func TestMongoshCommand(t *testing.T) {
	creds := Credentials{Username: "admin", Password: "secret"}
	cmd := MongoshCommand(creds, "appdb", "db.getCollectionNames()")

	assert.Equal(t, []string{
		"mongosh",
		"-u", "admin",
		"-p", "secret",
		"--authenticationDatabase", "admin",
		"appdb",
		"--quiet",
		"--eval", "db.getCollectionNames()",
	}, cmd)
}
