package jsonrpc

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"

	"github.com/mnehpets/jsonrpc11base/schema"
)

// Convention is the shape of arguments a handler is invoked with. It is
// resolved once, when the handler is added.
type Convention int

const (
	// NoArgs handlers take no arguments and accept no params.
	NoArgs Convention = iota
	// ContextOnly handlers take only a context.Context and accept no params.
	ContextOnly
	// ParamsOnly handlers take only the request params.
	ParamsOnly
	// ParamsAndContext handlers take the request params and a context.Context.
	ParamsAndContext
)

func (c Convention) String() string {
	switch c {
	case NoArgs:
		return "NoArgs"
	case ContextOnly:
		return "ContextOnly"
	case ParamsOnly:
		return "ParamsOnly"
	case ParamsAndContext:
		return "ParamsAndContext"
	}
	return fmt.Sprintf("Convention(%d)", int(c))
}

// TakesParams reports whether handlers of this convention require params.
func (c Convention) TakesParams() bool {
	return c == ParamsOnly || c == ParamsAndContext
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// method is a registered handler. It is immutable once added.
type method struct {
	name       string
	convention Convention
	fn         reflect.Value
	// contextFirst is set for func(ctx, params) handlers.
	contextFirst bool
	params       *binder
	// Indexes of the value and error results, -1 when absent.
	resultIndex int
	errorIndex  int
	schemas     schema.Set
	// system methods are exempt from parameter validation.
	system bool
}

// parseHandler resolves the calling convention of handler.
//
// Valid signatures take zero, one or two arguments, where a context.Context
// argument is the runtime context slot and any other argument receives the
// params:
//
//	func() R
//	func(ctx context.Context) R
//	func(params P) R
//	func(params P, ctx context.Context) R
//	func(ctx context.Context, params P) R
//
// and R is one of (T, error), error, T or nothing.
func parseHandler(handler any) (*method, error) {
	fv := reflect.ValueOf(handler)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T is not a function", ErrInvalidHandler, handler)
	}
	if fv.IsNil() {
		return nil, fmt.Errorf("%w: nil function", ErrInvalidHandler)
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic function %s", ErrInvalidHandler, ft)
	}

	m := &method{fn: fv, resultIndex: -1, errorIndex: -1}
	var paramType reflect.Type

	switch ft.NumIn() {
	case 0:
		m.convention = NoArgs
	case 1:
		if ft.In(0) == contextType {
			m.convention = ContextOnly
		} else {
			m.convention = ParamsOnly
			paramType = ft.In(0)
		}
	case 2:
		switch {
		case ft.In(1) == contextType && ft.In(0) != contextType:
			paramType = ft.In(0)
		case ft.In(0) == contextType && ft.In(1) != contextType:
			paramType = ft.In(1)
			m.contextFirst = true
		default:
			return nil, fmt.Errorf("%w: %s must take params and one context.Context", ErrInvalidHandler, ft)
		}
		m.convention = ParamsAndContext
	default:
		return nil, fmt.Errorf("%w: %s takes more than two arguments", ErrInvalidHandler, ft)
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			m.errorIndex = 0
		} else {
			m.resultIndex = 0
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("%w: second result of %s must be error", ErrInvalidHandler, ft)
		}
		m.resultIndex, m.errorIndex = 0, 1
	default:
		return nil, fmt.Errorf("%w: %s returns more than two results", ErrInvalidHandler, ft)
	}

	if paramType != nil {
		m.params = newBinder(paramType)
	}
	return m, nil
}

// handlerName derives a method name from a function's identity: the bare
// function or method name, without package path or receiver.
func handlerName(fv reflect.Value) string {
	fn := runtime.FuncForPC(fv.Pointer())
	if fn == nil {
		return ""
	}
	name := strings.TrimSuffix(fn.Name(), "-fm")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// registry maps method names to handlers. It is only mutated while the
// service is being assembled; lookups need no locking afterwards.
type registry struct {
	methods map[string]*method
}

func newRegistry() *registry {
	return &registry{methods: make(map[string]*method)}
}

func (r *registry) add(m *method) error {
	if _, exists := r.methods[m.name]; exists {
		return &DuplicateMethodNameError{Name: m.name}
	}
	r.methods[m.name] = m
	return nil
}

func (r *registry) has(name string) bool {
	_, ok := r.methods[name]
	return ok
}

func (r *registry) lookup(name string) (*method, bool) {
	m, ok := r.methods[name]
	return m, ok
}

// names returns the registered names in sorted order.
func (r *registry) names() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MethodOption configures a method being added.
type MethodOption func(*methodConfig)

type methodConfig struct {
	name    string
	schemas schema.Set
	// Set when an option overrides the schema source.
	paramsSet, resultSet bool
}

// WithName registers the handler under name instead of its function name.
func WithName(name string) MethodOption {
	return func(c *methodConfig) {
		c.name = name
	}
}

// WithParamsSchema validates the method's params against s.
func WithParamsSchema(s *schema.Schema) MethodOption {
	return func(c *methodConfig) {
		c.schemas.Params, c.schemas.ParamsAbsent = s, false
		c.paramsSet = true
	}
}

// WithAbsentParams declares that the method takes no params.
func WithAbsentParams() MethodOption {
	return func(c *methodConfig) {
		c.schemas.Params, c.schemas.ParamsAbsent = nil, true
		c.paramsSet = true
	}
}

// WithResultSchema validates the method's result against s when result
// validation is enabled.
func WithResultSchema(s *schema.Schema) MethodOption {
	return func(c *methodConfig) {
		c.schemas.Result, c.schemas.ResultAbsent = s, false
		c.resultSet = true
	}
}

// WithAbsentResult declares that the method returns no result.
func WithAbsentResult() MethodOption {
	return func(c *methodConfig) {
		c.schemas.Result, c.schemas.ResultAbsent = nil, true
		c.resultSet = true
	}
}
