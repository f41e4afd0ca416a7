package connection

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"mongoquery/internal/config"
	"mongoquery/internal/logging"
	"mongoquery/internal/query"
)

// listCollectionsTimeoutSecs bounds the collection-listing exec
const listCollectionsTimeoutSecs int64 = 30

// ClusterConnection executes queries by running mongosh inside a MongoDB pod
// found through the cluster API. Every query rediscovers the pod and
// re-resolves credentials; nothing is cached between calls.
type ClusterConnection struct {
	cfg    config.ClusterConnectionConfig
	client execClient
	logger logging.Logger
}

// NewClusterConnection creates a cluster-backed connection
func NewClusterConnection(cfg config.ClusterConnectionConfig, client execClient, logger logging.Logger) *ClusterConnection {
	return &ClusterConnection{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

func (c *ClusterConnection) Name() string              { return c.cfg.Namespace }
func (c *ClusterConnection) Kind() string              { return KindCluster }
func (c *ClusterConnection) DocumentationPath() string { return c.cfg.DocumentationPath }
func (c *ClusterConnection) DatabaseName() string      { return c.cfg.Database }

// ListCollections runs the collection-name script inside a healthy pod
func (c *ClusterConnection) ListCollections(ctx context.Context) ([]string, error) {
	pod, creds, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Infof("Listing collections in database: %s", c.cfg.Database)

	command := query.MongoshCommand(creds, c.cfg.Database, query.ListCollectionsScript)
	output, err := c.client.Exec(ctx, c.cfg.Namespace, pod, c.containerName(), command, listCollectionsTimeoutSecs)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	trimmed := strings.TrimSpace(output)
	var collections []string
	if err := sonic.Unmarshal([]byte(trimmed), &collections); err != nil {
		return nil, fmt.Errorf("failed to parse collection list: %s: %w", trimmed, err)
	}

	sort.Strings(collections)
	return collections, nil
}

// ExecuteQuery compiles the query, renders the mongosh script and runs it in
// a healthy pod, classifying the raw output.
func (c *ClusterConnection) ExecuteQuery(ctx context.Context, collection string, op query.Operation, queryText string, opts query.Options, timeoutSecs int64) (string, error) {
	params, err := query.Compile(op, queryText, opts)
	if err != nil {
		return "", err
	}

	script, err := params.EvalScript(collection)
	if err != nil {
		return "", err
	}
	c.logger.Debugf("Mongosh eval code: %s", script)

	pod, creds, err := c.prepare(ctx)
	if err != nil {
		return "", err
	}

	c.logger.Infof("Executing %s on %s.%s via cluster connection '%s' (pod %s)",
		op, c.cfg.Database, collection, c.Name(), pod)

	command := query.MongoshCommand(creds, c.cfg.Database, script)
	output, err := c.client.Exec(ctx, c.cfg.Namespace, pod, c.containerName(), command, timeoutSecs)
	if err != nil {
		return "", fmt.Errorf("failed to execute mongosh command: %w", err)
	}

	return query.ClassifyOutput(output, collection, c.cfg.Database)
}

// prepare finds a healthy pod and resolves fresh credentials from it
func (c *ClusterConnection) prepare(ctx context.Context) (string, query.Credentials, error) {
	pod, err := c.client.FindHealthyPod(ctx, c.cfg.Namespace, c.cfg.Deployment)
	if err != nil {
		return "", query.Credentials{}, err
	}

	creds, err := resolveCredentials(ctx, c.client, c.cfg.Namespace, pod, c.containerName())
	if err != nil {
		return "", query.Credentials{}, err
	}

	return pod, creds, nil
}

// containerName is the deployment name: the database container is named
// after its deployment in the supported charts
func (c *ClusterConnection) containerName() string {
	return c.cfg.Deployment
}
