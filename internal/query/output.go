package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// ClassifyOutput validates and normalizes raw mongosh output for the cluster
// backend. The remote tool has no structured exit-status channel, so error
// detection is a text heuristic: recognized markers are classified in a fixed
// priority order and rewritten with guidance, always preserving the raw text.
func ClassifyOutput(raw, collection, database string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	if trimmed == "" {
		return "", fmt.Errorf(
			"query returned empty output. This may indicate:\n"+
				"- The collection '%s' might not exist in database '%s'\n"+
				"- Use list_collections to verify the exact collection name (case-sensitive)",
			collection, database)
	}

	if strings.Contains(trimmed, "MongoServerError") || strings.Contains(trimmed, "MongoError") {
		switch {
		case strings.Contains(trimmed, "ns not found") || strings.Contains(trimmed, "doesn't exist"):
			return "", fmt.Errorf(
				"collection '%s' not found in database '%s'.\n"+
					"SOLUTION: Use list_collections to get exact collection names (they are case-sensitive).\n"+
					"Raw error: %s",
				collection, database, trimmed)
		case strings.Contains(trimmed, "Authentication failed"):
			return "", fmt.Errorf(
				"MongoDB authentication failed. The credentials may have changed.\n"+
					"Raw error: %s", trimmed)
		case strings.Contains(trimmed, "timed out") || strings.Contains(trimmed, "timeout"):
			return "", fmt.Errorf(
				"query timed out. The query may be too slow or the database is under heavy load.\n"+
					"SUGGESTIONS:\n"+
					"- Add more specific filters to reduce result size\n"+
					"- Use $limit in aggregation pipelines\n"+
					"- Try countDocuments first to check data size\n"+
					"Raw error: %s", trimmed)
		case strings.Contains(trimmed, "SyntaxError") || strings.Contains(trimmed, "Invalid"):
			return "", fmt.Errorf(
				"invalid query syntax. Check your query JSON format.\n"+
					"COMMON ISSUES:\n"+
					"- Ensure JSON is properly quoted\n"+
					"- For distinct: use {\"field\": \"fieldName\", \"query\": {}}\n"+
					"- For aggregate: use array format [{\"$match\": {}}]\n"+
					"Raw error: %s", trimmed)
		default:
			return "", fmt.Errorf("MongoDB error: %s", trimmed)
		}
	}

	// Validate the payload parses as JSON. A bare number is also accepted
	// because countDocuments yields one without any stringify wrapper.
	var value interface{}
	if err := sonic.Unmarshal([]byte(trimmed), &value); err != nil {
		if _, intErr := strconv.ParseInt(trimmed, 10, 64); intErr == nil {
			return trimmed, nil
		}
		if _, floatErr := strconv.ParseFloat(trimmed, 64); floatErr == nil {
			return trimmed, nil
		}
		return "", fmt.Errorf(
			"failed to parse query result.\n"+
				"Collection: '%s', Database: '%s'\n"+
				"Raw output: %s\n"+
				"Parse error: %v",
			collection, database, trimmed, err)
	}

	return trimmed, nil
}
