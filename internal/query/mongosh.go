package query

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// ListCollectionsScript is the eval script used to list collection names
const ListCollectionsScript = "JSON.stringify(db.getCollectionNames())"

// escapeJSString renders s as a quoted, JSON-escaped JavaScript string
// literal. Collection and field names reach the script only through this
// helper: bracket-subscript access with an escaped string cannot break out of
// the string even when the name contains quotes or statement separators.
func escapeJSString(s string) (string, error) {
	quoted, err := sonic.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to escape name %q: %w", s, err)
	}
	return string(quoted), nil
}

// EvalScript renders the effective parameters as a single mongosh eval
// expression. Every result is wrapped in JSON.stringify so the output is
// machine-parseable, except countDocuments whose result is a bare number.
func (p Params) EvalScript(collection string) (string, error) {
	safeCollection, err := escapeJSString(collection)
	if err != nil {
		return "", err
	}

	switch p.Op {
	case OpFind:
		chain := fmt.Sprintf("db[%s].find(%s, %s)", safeCollection, p.Filter, p.Projection)
		if p.Sort != "" {
			chain = fmt.Sprintf("%s.sort(%s)", chain, p.Sort)
		}
		if p.Limit > 0 {
			chain = fmt.Sprintf("%s.limit(%d)", chain, p.Limit)
		}
		return fmt.Sprintf("JSON.stringify(%s.toArray())", chain), nil

	case OpAggregate:
		return fmt.Sprintf("JSON.stringify(db[%s].aggregate(%s).toArray())", safeCollection, p.Pipeline), nil

	case OpCountDocuments:
		// countDocuments returns a number, no JSON.stringify needed
		return fmt.Sprintf("db[%s].countDocuments(%s)", safeCollection, p.Filter), nil

	case OpDistinct:
		safeField, err := escapeJSString(p.DistinctField)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("JSON.stringify(db[%s].distinct(%s, %s))", safeCollection, safeField, p.Filter), nil

	default:
		return "", fmt.Errorf("invalid operation '%s'", p.Op)
	}
}

// Credentials holds a MongoDB username/password pair. Values are re-resolved
// on every cluster-backed query and never persisted.
type Credentials struct {
	Username string
	Password string
}

// MongoshCommand builds the mongosh argument vector for an eval script
func MongoshCommand(creds Credentials, database, evalScript string) []string {
	return []string{
		"mongosh",
		"-u", creds.Username,
		"-p", creds.Password,
		"--authenticationDatabase", "admin",
		database,
		"--quiet",
		"--eval", evalScript,
	}
}
