package jsonrpc

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

var rawMessageType = reflect.TypeOf(json.RawMessage(nil))

// binder converts request params into a handler's parameter type.
//
// Interface parameters (any) receive the decoded params as-is and
// json.RawMessage parameters receive them re-encoded. Other types are decoded
// with mapstructure using json tags. Struct parameters accept both named
// (object) params and positional (array) params, which map onto fields in
// declaration order.
type binder struct {
	typ    reflect.Type
	target reflect.Type
	// fields are the param names of a struct target, in declaration order.
	fields   []string
	optional map[string]bool
}

func newBinder(t reflect.Type) *binder {
	b := &binder{typ: t, target: t}
	if t.Kind() == reflect.Pointer {
		b.target = t.Elem()
	}
	if b.target.Kind() == reflect.Struct {
		b.fields, b.optional = paramFields(b.target)
	}
	return b
}

// paramFields lists the json names of the settable fields of t. Fields
// tagged omitempty are optional in named params.
func paramFields(t reflect.Type) ([]string, map[string]bool) {
	names := make([]string, 0, t.NumField())
	optional := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Name == "_" || !field.IsExported() {
			continue
		}
		name := field.Name
		tag := field.Tag.Get("json")
		if tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					optional[name] = true
				}
			}
		}
		names = append(names, name)
	}
	return names, optional
}

func (b *binder) bind(params any) (reflect.Value, error) {
	if b.typ.Kind() == reflect.Interface {
		out := reflect.New(b.typ).Elem()
		if params == nil {
			return out, nil
		}
		v := reflect.ValueOf(params)
		if !v.Type().AssignableTo(b.typ) {
			return reflect.Value{}, fmt.Errorf("params of type %s cannot be used as %s", v.Type(), b.typ)
		}
		out.Set(v)
		return out, nil
	}
	if b.typ == rawMessageType {
		data, err := json.Marshal(params)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(json.RawMessage(data)), nil
	}

	input := params
	if b.target.Kind() == reflect.Struct {
		var err error
		if input, err = b.structInput(params); err != nil {
			return reflect.Value{}, err
		}
	}

	target := reflect.New(b.target)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: exactIntegerHook,
		TagName:    "json",
		Result:     target.Interface(),
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := decoder.Decode(input); err != nil {
		return reflect.Value{}, err
	}
	if b.typ.Kind() == reflect.Pointer {
		return target, nil
	}
	return target.Elem(), nil
}

// structInput maps positional params onto field names and checks that
// named params supply every required field.
func (b *binder) structInput(params any) (any, error) {
	rv := reflect.ValueOf(params)
	if !rv.IsValid() {
		return params, nil
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() != len(b.fields) {
			return nil, fmt.Errorf("invalid number of params: got %d, want %d", rv.Len(), len(b.fields))
		}
		named := make(map[string]any, len(b.fields))
		for i, name := range b.fields {
			named[name] = rv.Index(i).Interface()
		}
		return named, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return params, nil
		}
		for _, name := range b.fields {
			if b.optional[name] {
				continue
			}
			if !rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())).IsValid() {
				return nil, fmt.Errorf("missing param: %s", name)
			}
		}
	}
	return params, nil
}

// exactIntegerHook rejects numbers that an integer field or element cannot
// hold exactly, instead of truncating them.
func exactIntegerHook(from, to reflect.Type, data any) (any, error) {
	if !isIntegerKind(to.Kind()) {
		return data, nil
	}
	v := reflect.ValueOf(data)
	target := reflect.New(to).Elem()
	isUint := target.CanUint()

	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%v is not an integer", f)
		}
		bits := to.Bits()
		if isUint && (f < 0 || f >= math.Ldexp(1, bits)) ||
			!isUint && (f < -math.Ldexp(1, bits-1) || f >= math.Ldexp(1, bits-1)) {
			return nil, fmt.Errorf("%v overflows %s", f, to)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := v.Int()
		if isUint && (i < 0 || target.OverflowUint(uint64(i))) || !isUint && target.OverflowInt(i) {
			return nil, fmt.Errorf("%d overflows %s", i, to)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if isUint && target.OverflowUint(u) || !isUint && (u > math.MaxInt64 || target.OverflowInt(int64(u))) {
			return nil, fmt.Errorf("%d overflows %s", u, to)
		}
	}
	return data, nil
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
