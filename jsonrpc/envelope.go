package jsonrpc

import (
	"fmt"
	"reflect"

	"github.com/mnehpets/jsonrpc11base/schema"
)

// Request is a request whose envelope has been validated.
type Request struct {
	Version string
	Method  string
	// Params is only meaningful when HasParams is set; it is then a JSON
	// array or object.
	Params    any
	HasParams bool
	// ID is only meaningful when HasID is set. It may be any JSON value,
	// including null.
	ID    any
	HasID bool
}

// validateEnvelope checks the shape of a decoded request independently of
// the target method. On failure the returned Request is still non-nil when v
// is an object, so that its id can be echoed.
func validateEnvelope(v any) (*Request, *schema.Violation) {
	obj, ok := asObject(v)
	if !ok {
		return nil, &schema.Violation{
			Message: fmt.Sprintf("%s is not of type 'object'", schema.Repr(v)),
			Path:    "type",
			Value:   "object",
		}
	}

	req := &Request{}
	req.ID, req.HasID = obj["id"]

	method, ok := obj["method"]
	if !ok {
		return req, requiredViolation("method")
	}
	version, ok := obj["version"]
	if !ok {
		return req, requiredViolation("version")
	}

	name, ok := method.(string)
	if !ok {
		return req, &schema.Violation{
			Message: fmt.Sprintf("%s is not of type 'string'", schema.Repr(method)),
			Path:    "properties.method.type",
			Value:   "string",
		}
	}
	req.Method = name

	if s, ok := version.(string); !ok || s != Version {
		return req, &schema.Violation{
			Message: fmt.Sprintf("%s was expected", schema.Repr(Version)),
			Path:    "properties.version.const",
			Value:   Version,
		}
	}
	req.Version = Version

	if params, ok := obj["params"]; ok {
		if t := schema.TypeOf(params); t != "array" && t != "object" {
			return req, &schema.Violation{
				Message: fmt.Sprintf("%s is not of type 'array', 'object'", schema.Repr(params)),
				Path:    "properties.params.type",
				Value:   []string{"array", "object"},
			}
		}
		req.Params, req.HasParams = params, true
	}
	return req, nil
}

func requiredViolation(name string) *schema.Violation {
	return &schema.Violation{
		Message: fmt.Sprintf("%s is a required property", schema.Repr(name)),
		Path:    "required",
		Value:   []string{"method", "version"},
	}
}

// asObject accepts map[string]any and any other map keyed by strings.
func asObject(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}
