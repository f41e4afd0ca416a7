// Package query implements the read-only MongoDB query compiler: a shared
// decision table that turns (operation, query text, options) into effective
// parameters, plus two renderers over those parameters - a structured driver
// call for the native client and an injection-safe mongosh eval script for
// remote execution.
package query

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// Operation is a read-only MongoDB query operation. No mutating variant
// exists, which is what makes the whole service read-only by construction.
type Operation string

const (
	OpFind           Operation = "find"
	OpAggregate      Operation = "aggregate"
	OpCountDocuments Operation = "countDocuments"
	OpDistinct       Operation = "distinct"
)

// ParseOperation converts a case-insensitive operation string to an Operation
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(s) {
	case "find":
		return OpFind, nil
	case "aggregate":
		return OpAggregate, nil
	case "countdocuments":
		return OpCountDocuments, nil
	case "distinct":
		return OpDistinct, nil
	default:
		return "", fmt.Errorf("invalid operation '%s'. Must be one of: find, aggregate, countDocuments, distinct", s)
	}
}

// String returns the canonical form of the operation
func (op Operation) String() string {
	return string(op)
}

// Options holds the optional query parameters. Limit, sort and projection are
// consulted only by find; DistinctField only by distinct. Irrelevant fields
// are dropped by Compile, never errored.
type Options struct {
	Limit         int64  // maximum documents to return (find only), 0 means unset
	Sort          string // sort order as a JSON object string (find only)
	Projection    string // projection as a JSON object string (find only)
	DistinctField string // field name for the distinct operation (distinct only)
}

// HasFindOverrides reports whether any find-only option is set
func (o Options) HasFindOverrides() bool {
	return o.Limit > 0 || o.Sort != "" || o.Projection != ""
}

// Params holds the effective parameters derived from the shared decision
// table. Both renderers consume a Params value, which keeps the driver and
// mongosh backends semantically equivalent.
type Params struct {
	Op            Operation
	Filter        string // JSON object text (find, countDocuments, distinct)
	Pipeline      string // JSON array text (aggregate)
	Projection    string // JSON object text (find), defaults to {}
	Sort          string // JSON object text (find), empty when unset
	Limit         int64  // find, 0 when unset
	DistinctField string // distinct
}

// distinctParams is the legacy distinct query shape {"field": ..., "query": ...}
type distinctParams struct {
	Field string          `json:"field"`
	Query sonicRawMessage `json:"query"`
}

type sonicRawMessage []byte

func (m *sonicRawMessage) UnmarshalJSON(data []byte) error {
	*m = append((*m)[0:0], data...)
	return nil
}

// Compile derives the effective parameters for an operation. It validates the
// query text and every consulted option independently; a validation failure
// names the piece of input that failed.
func Compile(op Operation, queryText string, opts Options) (Params, error) {
	params := Params{Op: op}

	switch op {
	case OpFind:
		if err := validateObject(queryText); err != nil {
			return params, fmt.Errorf("query is not a valid JSON object. Received: '%s': %w", queryText, err)
		}
		params.Filter = queryText

		params.Projection = "{}"
		if opts.Projection != "" {
			if err := validateObject(opts.Projection); err != nil {
				return params, fmt.Errorf("projection is not a valid JSON object: '%s': %w", opts.Projection, err)
			}
			params.Projection = opts.Projection
		}

		if opts.Sort != "" {
			if err := validateObject(opts.Sort); err != nil {
				return params, fmt.Errorf("sort is not a valid JSON object: '%s': %w", opts.Sort, err)
			}
			params.Sort = opts.Sort
		}

		if opts.Limit > 0 {
			params.Limit = opts.Limit
		}

	case OpAggregate:
		if err := validateStageArray(queryText); err != nil {
			return params, fmt.Errorf("aggregation pipeline is not a valid JSON array of stages. Received: '%s': %w", queryText, err)
		}
		params.Pipeline = queryText

	case OpCountDocuments:
		if err := validateObject(queryText); err != nil {
			return params, fmt.Errorf("query is not a valid JSON object. Received: '%s': %w", queryText, err)
		}
		params.Filter = queryText

	case OpDistinct:
		// New shape takes precedence: distinct field in the options, query
		// text is the filter directly.
		if opts.DistinctField != "" {
			if err := validateObject(queryText); err != nil {
				return params, fmt.Errorf("distinct filter is not a valid JSON object. Received: '%s': %w", queryText, err)
			}
			params.DistinctField = opts.DistinctField
			params.Filter = queryText
			break
		}

		// Legacy shape: {"field": "name", "query": {...}}
		var legacy distinctParams
		if err := sonic.Unmarshal([]byte(queryText), &legacy); err != nil {
			return params, fmt.Errorf("distinct query must be valid JSON. Received: '%s': %w", queryText, err)
		}
		if legacy.Field == "" {
			return params, fmt.Errorf("distinct requires the 'distinct_field' parameter (or a 'field' key in the query)")
		}
		params.DistinctField = legacy.Field
		params.Filter = "{}"
		if len(legacy.Query) > 0 && string(legacy.Query) != "null" {
			if err := validateObject(string(legacy.Query)); err != nil {
				return params, fmt.Errorf("distinct 'query' is not a valid JSON object: %w", err)
			}
			params.Filter = string(legacy.Query)
		}

	default:
		return params, fmt.Errorf("invalid operation '%s'. Must be one of: find, aggregate, countDocuments, distinct", op)
	}

	return params, nil
}

// validateObject checks that the text parses as a JSON object
func validateObject(text string) error {
	var obj map[string]interface{}
	return sonic.Unmarshal([]byte(text), &obj)
}

// validateStageArray checks that the text parses as a JSON array of objects
func validateStageArray(text string) error {
	var stages []map[string]interface{}
	return sonic.Unmarshal([]byte(text), &stages)
}
