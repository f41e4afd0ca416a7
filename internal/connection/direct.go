package connection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mongoquery/internal/config"
	"mongoquery/internal/logging"
	"mongoquery/internal/query"
)

const (
	directConnectTimeout         = 10 * time.Second
	directServerSelectionTimeout = 30 * time.Second
)

// DirectConnection talks to MongoDB through the native driver, using a
// connection URL. The client handle is created lazily on first use and
// reused for the process lifetime; concurrent first callers trigger exactly
// one connection attempt and all observe its outcome.
type DirectConnection struct {
	cfg    config.DirectConnectionConfig
	logger logging.Logger

	initOnce sync.Once
	client   *mongo.Client
	initErr  error
}

// NewDirectConnection creates a direct connection. No network activity
// happens until the first query.
func NewDirectConnection(cfg config.DirectConnectionConfig, logger logging.Logger) *DirectConnection {
	return &DirectConnection{
		cfg:    cfg,
		logger: logger,
	}
}

func (d *DirectConnection) Name() string              { return d.cfg.Name }
func (d *DirectConnection) Kind() string              { return KindDirect }
func (d *DirectConnection) DocumentationPath() string { return d.cfg.DocumentationPath }
func (d *DirectConnection) DatabaseName() string      { return d.cfg.Database }

// Close disconnects the driver client if one was ever created
func (d *DirectConnection) Close(ctx context.Context) error {
	d.initOnce.Do(func() {})
	if d.client == nil {
		return nil
	}
	return d.client.Disconnect(ctx)
}

// getClient lazily initializes the MongoDB client on first use
func (d *DirectConnection) getClient(ctx context.Context) (*mongo.Client, error) {
	d.initOnce.Do(func() {
		d.logger.Infof("Initializing direct MongoDB connection '%s'", d.cfg.Name)

		opts := options.Client().
			ApplyURI(d.cfg.URL).
			SetConnectTimeout(directConnectTimeout).
			SetServerSelectionTimeout(directServerSelectionTimeout)

		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			d.initErr = fmt.Errorf("failed to create MongoDB client: %w", err)
			return
		}
		d.client = client
	})
	return d.client, d.initErr
}

// ListCollections lists collection names through the driver, sorted
func (d *DirectConnection) ListCollections(ctx context.Context) ([]string, error) {
	client, err := d.getClient(ctx)
	if err != nil {
		return nil, err
	}

	collections, err := client.Database(d.cfg.Database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	sort.Strings(collections)
	return collections, nil
}

// ExecuteQuery compiles the query into a structured driver call and executes
// it with the caller-supplied timeout. A timeout abandons the pending call
// and reports the same message shape as the cluster backend.
func (d *DirectConnection) ExecuteQuery(ctx context.Context, collection string, op query.Operation, queryText string, opts query.Options, timeoutSecs int64) (string, error) {
	params, err := query.Compile(op, queryText, opts)
	if err != nil {
		return "", err
	}

	call, err := params.DriverCall()
	if err != nil {
		return "", err
	}

	client, err := d.getClient(ctx)
	if err != nil {
		return "", err
	}
	coll := client.Database(d.cfg.Database).Collection(collection)

	d.logger.Infof("Executing %s on %s.%s via direct connection '%s'",
		op, d.cfg.Database, collection, d.cfg.Name)

	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	result, err := d.executeCall(queryCtx, coll, call)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || queryCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("query timed out after %d seconds", timeoutSecs)
		}
		return "", err
	}
	return result, nil
}

// executeCall dispatches a structured driver call against a collection
func (d *DirectConnection) executeCall(ctx context.Context, coll *mongo.Collection, call *query.DriverCall) (string, error) {
	switch call.Op {
	case query.OpFind:
		findOpts := options.Find().SetProjection(call.Projection)
		if call.Sort != nil {
			findOpts = findOpts.SetSort(call.Sort)
		}
		if call.Limit > 0 {
			findOpts = findOpts.SetLimit(call.Limit)
		}

		cursor, err := coll.Find(ctx, call.Filter, findOpts)
		if err != nil {
			return "", fmt.Errorf("find query failed: %w", err)
		}
		var docs []bson.D
		if err := cursor.All(ctx, &docs); err != nil {
			return "", fmt.Errorf("failed to collect find results: %w", err)
		}
		return docsToJSON(docs)

	case query.OpAggregate:
		cursor, err := coll.Aggregate(ctx, call.Pipeline)
		if err != nil {
			return "", fmt.Errorf("aggregate query failed: %w", err)
		}
		var docs []bson.D
		if err := cursor.All(ctx, &docs); err != nil {
			return "", fmt.Errorf("failed to collect aggregate results: %w", err)
		}
		return docsToJSON(docs)

	case query.OpCountDocuments:
		count, err := coll.CountDocuments(ctx, call.Filter)
		if err != nil {
			return "", fmt.Errorf("countDocuments query failed: %w", err)
		}
		return strconv.FormatInt(count, 10), nil

	case query.OpDistinct:
		values, err := coll.Distinct(ctx, call.DistinctField, call.Filter)
		if err != nil {
			return "", fmt.Errorf("distinct query failed: %w", err)
		}
		serialized, err := sonic.Marshal(values)
		if err != nil {
			return "", fmt.Errorf("failed to serialize distinct results: %w", err)
		}
		return string(serialized), nil

	default:
		return "", fmt.Errorf("invalid operation '%s'", call.Op)
	}
}

// docsToJSON serializes driver documents as a JSON array using relaxed
// extended JSON per element
func docsToJSON(docs []bson.D) (string, error) {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		data, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return "", fmt.Errorf("failed to serialize results: %w", err)
		}
		parts = append(parts, string(data))
	}
	return "[" + strings.Join(parts, ",") + "]", nil
}
