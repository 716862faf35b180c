// Package schema provides the JSON Schema collaborators used by the jsonrpc
// engine: compiled schema documents, a validator that reports violations in
// JSON-Schema style, and sources that supply per-method schemas.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSchema = errors.New("invalid schema")

// Schema is a JSON Schema document resolved once for repeated validation.
// A Schema is immutable and safe for concurrent use.
type Schema struct {
	doc      *jsonschema.Schema
	resolved *jsonschema.Resolved
}

// Compile resolves doc for validation.
func Compile(doc *jsonschema.Schema) (*Schema, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidSchema)
	}
	resolved, err := doc.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return &Schema{doc: doc, resolved: resolved}, nil
}

// Parse compiles a schema document written in JSON or YAML.
func Parse(data []byte) (*Schema, error) {
	v, err := decode(data)
	if err != nil {
		return nil, err
	}
	return fromValue(v)
}

// MustParse is like Parse but panics on error. It is intended for schemas
// embedded in source code.
func MustParse(s string) *Schema {
	sch, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return sch
}

// Document returns the underlying schema document.
func (s *Schema) Document() *jsonschema.Schema {
	return s.doc
}

// decode reads a JSON or YAML document into generic values.
func decode(data []byte) (any, error) {
	var v any
	if json.Valid(data) {
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
		return v, nil
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return v, nil
}

func fromValue(v any) (*Schema, error) {
	if _, ok := v.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: document is %s, not an object", ErrInvalidSchema, TypeOf(v))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	var doc jsonschema.Schema
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return Compile(&doc)
}

// Violation describes the first way a value failed to satisfy a schema.
type Violation struct {
	Message string
	// Path is the schema path of the failing keyword, e.g. "items.4.type".
	Path string
	// Value is the keyword's expected value, e.g. "boolean".
	Value any
}

func (v *Violation) Error() string {
	return v.Message
}

// Validator checks values against schemas.
type Validator interface {
	// Validate returns nil if value satisfies s.
	Validate(s *Schema, value any) *Violation
}

// JSONSchemaValidator is the default Validator. Top-level type, positional
// item type and required property failures are reported with a schema path
// and expected value; anything else carries the underlying library's message.
type JSONSchemaValidator struct{}

func (JSONSchemaValidator) Validate(s *Schema, value any) *Violation {
	if s == nil {
		return nil
	}
	if v := checkType(s.doc, value, ""); v != nil {
		return v
	}
	if v := checkPrefixItems(s.doc, value); v != nil {
		return v
	}
	if v := checkRequired(s.doc, value); v != nil {
		return v
	}
	if err := s.resolved.Validate(value); err != nil {
		return &Violation{Message: err.Error()}
	}
	return nil
}

func schemaTypes(doc *jsonschema.Schema) []string {
	if doc == nil {
		return nil
	}
	if doc.Type != "" {
		return []string{doc.Type}
	}
	return doc.Types
}

func checkType(doc *jsonschema.Schema, value any, prefix string) *Violation {
	want := schemaTypes(doc)
	if len(want) == 0 {
		return nil
	}
	for _, t := range want {
		if HasType(value, t) {
			return nil
		}
	}
	quoted := make([]string, len(want))
	for i, t := range want {
		quoted[i] = "'" + t + "'"
	}
	var expected any = want[0]
	if len(want) > 1 {
		expected = want
	}
	return &Violation{
		Message: fmt.Sprintf("%s is not of type %s", Repr(value), strings.Join(quoted, ", ")),
		Path:    prefix + "type",
		Value:   expected,
	}
}

func checkPrefixItems(doc *jsonschema.Schema, value any) *Violation {
	if len(doc.PrefixItems) == 0 {
		return nil
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil
	}
	for i := 0; i < rv.Len() && i < len(doc.PrefixItems); i++ {
		if v := checkType(doc.PrefixItems[i], rv.Index(i).Interface(), fmt.Sprintf("items.%d.", i)); v != nil {
			return v
		}
	}
	return nil
}

func checkRequired(doc *jsonschema.Schema, value any) *Violation {
	if len(doc.Required) == 0 {
		return nil
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil
	}
	for _, name := range doc.Required {
		key := reflect.ValueOf(name).Convert(rv.Type().Key())
		if !rv.MapIndex(key).IsValid() {
			return &Violation{
				Message: fmt.Sprintf("%s is a required property", Repr(name)),
				Path:    "required",
				Value:   doc.Required,
			}
		}
	}
	return nil
}
