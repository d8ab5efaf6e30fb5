package db

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

// Query is an sql file body together with the named parameters it expects.
// The parameters are extracted from `:Name` placeholders in the sql so that
// the files remain directly runnable (after parameter substitution) on the
// sqlite command line.
type Query struct {
	Body       string
	Parameters []string
}

// String provides a printable representation.
func (q Query) String() string {
	return fmt.Sprintf("\nParams: %s\nBody:   %s\n", strings.Join(q.Parameters, ", "), q.Body)
}

// regexpNamedParam matches sqlx named parameters such as `:UserID`. A
// preceding colon (as in a `::` cast) is excluded, although casts are not
// expected in sqlite sql.
var regexpNamedParam = regexp.MustCompile(`[^:]:([A-Za-z_][A-Za-z0-9_]*)`)

// extractParameters returns the unique named parameters in an sql body, in
// order of first appearance.
func extractParameters(body string) []string {
	matches := regexpNamedParam.FindAllStringSubmatch(" "+body, -1)
	seen := map[string]bool{}
	var params []string
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		params = append(params, m[1])
	}
	return params
}

// LoadQuery reads an sql file and returns a Query with its extracted named
// parameters. A file without any parameters is an error, since every query
// in this application is at least owner-scoped.
func LoadQuery(fileFS fs.FS, filePath string) (*Query, error) {

	fileBytes, err := fs.ReadFile(fileFS, filePath)
	if err != nil {
		return nil, fmt.Errorf("file read error: %w", err)
	}
	body := string(fileBytes)
	params := extractParameters(body)
	if len(params) == 0 {
		return nil, errors.New("loadquery: no named parameters found")
	}
	return &Query{
		Body:       body,
		Parameters: params,
	}, nil
}
