package connection

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mongoquery/internal/config"
	"mongoquery/internal/kube"
	"mongoquery/internal/logging"
	"mongoquery/internal/query"
)

// fakeExecClient records calls and plays back canned pod exec responses
type fakeExecClient struct {
	pod        string
	podErr     error
	envValues  []kube.EnvValue
	envErr     error
	files      map[string]string
	fileErr    error
	execOutput string
	execErr    error

	execCommands [][]string
	readPaths    []string
}

func (f *fakeExecClient) FindHealthyPod(ctx context.Context, namespace, deployment string) (string, error) {
	return f.pod, f.podErr
}

func (f *fakeExecClient) Exec(ctx context.Context, namespace, pod, container string, command []string, timeoutSecs int64) (string, error) {
	f.execCommands = append(f.execCommands, command)
	return f.execOutput, f.execErr
}

func (f *fakeExecClient) ReadFile(ctx context.Context, namespace, pod, container, path string) (string, error) {
	f.readPaths = append(f.readPaths, path)
	if f.fileErr != nil {
		return "", f.fileErr
	}
	return f.files[path], nil
}

func (f *fakeExecClient) GetEnvValues(ctx context.Context, namespace, pod string, names []string) ([]kube.EnvValue, error) {
	return f.envValues, f.envErr
}

func healthyFake() *fakeExecClient {
	return &fakeExecClient{
		pod: "mongodb-0",
		envValues: []kube.EnvValue{
			{Name: envUsernameFile, Value: "/run/secrets/user", Found: true},
			{Name: envPasswordFile, Value: "/run/secrets/pass", Found: true},
		},
		files: map[string]string{
			"/run/secrets/user": "root\n",
			"/run/secrets/pass": "s3cret\n",
		},
	}
}

func clusterConfig() config.ClusterConnectionConfig {
	return config.ClusterConnectionConfig{
		Namespace:  "tenant-a",
		Deployment: "mongodb",
		Database:   "appdb",
	}
}

func TestClusterExecuteQueryBuildsMongoshCommand(t *testing.T) {
	fake := healthyFake()
	fake.execOutput = `[{"name":"alice"}]`
	conn := NewClusterConnection(clusterConfig(), fake, logging.NewMockLogger())

	result, err := conn.ExecuteQuery(context.Background(), "users", query.OpFind, `{"active": true}`, query.Options{}, 30)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"alice"}]`, result)

	require.Len(t, fake.execCommands, 1)
	command := fake.execCommands[0]
	assert.Equal(t, []string{
		"mongosh", "-u", "root", "-p", "s3cret",
		"--authenticationDatabase", "admin", "appdb", "--quiet", "--eval",
		`JSON.stringify(db["users"].find({"active": true}, {}).toArray())`,
	}, command)
}

func TestClusterExecuteQueryTrimsCredentialFiles(t *testing.T) {
	fake := healthyFake()
	fake.files["/run/secrets/user"] = "  admin  \n"
	fake.execOutput = "[]"
	conn := NewClusterConnection(clusterConfig(), fake, logging.NewMockLogger())

	_, err := conn.ExecuteQuery(context.Background(), "users", query.OpFind, "{}", query.Options{}, 30)
	require.NoError(t, err)

	require.Len(t, fake.execCommands, 1)
	assert.Equal(t, "admin", fake.execCommands[0][2])
	assert.ElementsMatch(t, []string{"/run/secrets/user", "/run/secrets/pass"}, fake.readPaths)
}

func TestClusterExecuteQueryInvalidQueryNeverTouchesPod(t *testing.T) {
	fake := healthyFake()
	conn := NewClusterConnection(clusterConfig(), fake, logging.NewMockLogger())

	_, err := conn.ExecuteQuery(context.Background(), "users", query.OpFind, "not-json", query.Options{}, 30)
	require.Error(t, err)
	assert.Empty(t, fake.execCommands)
	assert.Empty(t, fake.readPaths)
}

func TestClusterExecuteQueryNoHealthyPod(t *testing.T) {
	fake := healthyFake()
	fake.podErr = fmt.Errorf("no healthy pods found for deployment 'mongodb' in namespace 'tenant-a'")
	conn := NewClusterConnection(clusterConfig(), fake, logging.NewMockLogger())

	_, err := conn.ExecuteQuery(context.Background(), "users", query.OpFind, "{}", query.Options{}, 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no healthy pods found")
}

func TestClusterExecuteQueryMissingCredentialEnv(t *testing.T) {
	fake := healthyFake()
	fake.envValues = []kube.EnvValue{
		{Name: envUsernameFile, Found: false},
		{Name: envPasswordFile, Value: "/run/secrets/pass", Found: true},
	}
	conn := NewClusterConnection(clusterConfig(), fake, logging.NewMockLogger())

	_, err := conn.ExecuteQuery(context.Background(), "users", query.OpFind, "{}", query.Options{}, 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MongoDB credentials not found")
	assert.Contains(t, err.Error(), envUsernameFile)
	assert.Contains(t, err.Error(), "tenant-a/mongodb-0")
}

func TestClusterExecuteQueryUnreadableCredentialFile(t *testing.T) {
	fake := healthyFake()
	fake.fileErr = fmt.Errorf("cat: permission denied")
	conn := NewClusterConnection(clusterConfig(), fake, logging.NewMockLogger())

	_, err := conn.ExecuteQuery(context.Background(), "users", query.OpFind, "{}", query.Options{}, 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestClusterExecuteQueryClassifiesServerError(t *testing.T) {
	fake := healthyFake()
	fake.execOutput = "MongoServerError: ns not found"
	conn := NewClusterConnection(clusterConfig(), fake, logging.NewMockLogger())

	_, err := conn.ExecuteQuery(context.Background(), "ghosts", query.OpFind, "{}", query.Options{}, 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection 'ghosts' not found")
	assert.Contains(t, err.Error(), "list_collections")
}

func TestClusterListCollections(t *testing.T) {
	fake := healthyFake()
	fake.execOutput = "[\"users\",\"orders\",\"audit\"]\n"
	conn := NewClusterConnection(clusterConfig(), fake, logging.NewMockLogger())

	collections, err := conn.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"audit", "orders", "users"}, collections)

	require.Len(t, fake.execCommands, 1)
	assert.Contains(t, fake.execCommands[0], query.ListCollectionsScript)
}

func TestClusterListCollectionsUnparseableOutput(t *testing.T) {
	fake := healthyFake()
	fake.execOutput = "MongoServerError: Authentication failed"
	conn := NewClusterConnection(clusterConfig(), fake, logging.NewMockLogger())

	_, err := conn.ListCollections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse collection list")
}

func TestClusterAccessors(t *testing.T) {
	conn := NewClusterConnection(config.ClusterConnectionConfig{
		Namespace:         "tenant-b",
		Deployment:        "mongo",
		Database:          "events",
		DocumentationPath: "/docs/events.md",
	}, healthyFake(), logging.NewMockLogger())

	assert.Equal(t, "tenant-b", conn.Name())
	assert.Equal(t, KindCluster, conn.Kind())
	assert.Equal(t, "events", conn.DatabaseName())
	assert.Equal(t, "/docs/events.md", conn.DocumentationPath())
}
