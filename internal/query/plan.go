package query

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DriverCall is the structured call description consumed by the direct
// backend. Filter and option values are typed BSON arguments; nothing is
// assembled by string concatenation.
type DriverCall struct {
	Op            Operation
	Filter        bson.D
	Pipeline      mongo.Pipeline
	Projection    bson.D
	Sort          bson.D
	Limit         int64
	DistinctField string
}

// DriverCall renders the effective parameters as typed driver arguments.
// Compile has already validated the JSON shapes, so decode failures here are
// limited to constructs the extended-JSON parser rejects.
func (p Params) DriverCall() (*DriverCall, error) {
	call := &DriverCall{
		Op:            p.Op,
		Limit:         p.Limit,
		DistinctField: p.DistinctField,
	}

	switch p.Op {
	case OpFind:
		filter, err := decodeDocument(p.Filter)
		if err != nil {
			return nil, fmt.Errorf("invalid query JSON for find: %w", err)
		}
		call.Filter = filter

		projection, err := decodeDocument(p.Projection)
		if err != nil {
			return nil, fmt.Errorf("invalid projection JSON: %w", err)
		}
		call.Projection = projection

		if p.Sort != "" {
			sort, err := decodeDocument(p.Sort)
			if err != nil {
				return nil, fmt.Errorf("invalid sort JSON: %w", err)
			}
			call.Sort = sort
		}

	case OpAggregate:
		pipeline, err := decodePipeline(p.Pipeline)
		if err != nil {
			return nil, fmt.Errorf("invalid aggregation pipeline JSON: %w", err)
		}
		call.Pipeline = pipeline

	case OpCountDocuments, OpDistinct:
		filter, err := decodeDocument(p.Filter)
		if err != nil {
			return nil, fmt.Errorf("invalid query JSON for %s: %w", p.Op, err)
		}
		call.Filter = filter

	default:
		return nil, fmt.Errorf("invalid operation '%s'", p.Op)
	}

	return call, nil
}

// decodeDocument parses JSON object text into an ordered BSON document
func decodeDocument(text string) (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(text), false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// decodePipeline parses JSON array text into pipeline stages. The array is
// split first because the extended-JSON reader wants one document at a time.
func decodePipeline(text string) (mongo.Pipeline, error) {
	var rawStages []json.RawMessage
	if err := sonic.Unmarshal([]byte(text), &rawStages); err != nil {
		return nil, err
	}

	pipeline := make(mongo.Pipeline, 0, len(rawStages))
	for i, raw := range rawStages {
		var stage bson.D
		if err := bson.UnmarshalExtJSON(raw, false, &stage); err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		pipeline = append(pipeline, stage)
	}
	return pipeline, nil
}
