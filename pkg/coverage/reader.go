package coverage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// resultSetSchema only pins the outer shape: an object keyed by non-empty
// process names. Payload shape is not checked.
const resultSetSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "propertyNames": {"minLength": 1}
}`

var compiledSchema = mustCompile(resultSetSchema)

func mustCompile(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("coverage: compile result-set schema: %v", err))
	}
	return s
}

// ReadResultSet loads and parses the result file at p.
func ReadResultSet(fsys fs.FS, p string) (ResultSet, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: p, Err: err}
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return ParseResultSet(p, data)
}

// ParseResultSet decodes data as a result set. name is used in errors only.
func ParseResultSet(name string, data []byte) (ResultSet, error) {
	if !json.Valid(data) {
		return nil, &ParseError{Path: name, Err: errors.New("invalid JSON")}
	}

	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &ParseError{Path: name, Err: err}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}
		return nil, &ParseError{Path: name, Err: errors.New(strings.Join(msgs, "; "))}
	}

	var rs ResultSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, &ParseError{Path: name, Err: err}
	}
	return rs, nil
}
