// Package savedquery persists named, reusable query templates per
// connection and substitutes their placeholders at run time.
package savedquery

import (
	"fmt"
	"sort"
	"strings"
)

const (
	placeholderOpen  = "{{"
	placeholderClose = "}}"
)

// FindPlaceholders scans text left to right for non-nesting {{name}}
// placeholders and returns the distinct names in first-seen order. An empty
// name ({{}}) is skipped. An unclosed opener ends the scan.
func FindPlaceholders(text string) []string {
	var names []string
	seen := make(map[string]bool)

	rest := text
	for {
		start := strings.Index(rest, placeholderOpen)
		if start < 0 {
			break
		}
		rest = rest[start+len(placeholderOpen):]
		end := strings.Index(rest, placeholderClose)
		if end < 0 {
			break
		}
		name := rest[:end]
		rest = rest[end+len(placeholderClose):]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Substitute replaces every {{name}} placeholder in text with its value from
// variables. Every placeholder must be covered; the error lists all missing
// names, sorted, so the caller can fix them in one pass.
func Substitute(text string, variables map[string]string) (string, error) {
	placeholders := FindPlaceholders(text)

	var missing []string
	for _, name := range placeholders {
		if _, ok := variables[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("missing values for template variables: %s", strings.Join(missing, ", "))
	}

	result := text
	for _, name := range placeholders {
		result = strings.ReplaceAll(result, placeholderOpen+name+placeholderClose, variables[name])
	}
	return result, nil
}
