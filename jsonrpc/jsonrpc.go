package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/mnehpets/jsonrpc11base/schema"
)

// Engine dispatches JSON-RPC 1.1 requests to registered handlers.
//
// Methods must be added before the engine starts serving calls; once the set
// of methods is stable, Call, CallValue and CallCBOR are safe for concurrent
// use.
type Engine struct {
	description    ServiceDescription
	registry       *registry
	source         schema.Source
	validator      schema.Validator
	validateParams bool
	validateResult bool
	log            zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSchemaSource looks up the schemas of every added method in src.
func WithSchemaSource(src schema.Source) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// WithValidator replaces the default schema.JSONSchemaValidator. A nil v
// keeps the default.
func WithValidator(v schema.Validator) Option {
	return func(e *Engine) {
		if v != nil {
			e.validator = v
		}
	}
}

// WithParamsValidation requires every method to declare its params, either
// with a schema or as absent.
func WithParamsValidation(enabled bool) Option {
	return func(e *Engine) {
		e.validateParams = enabled
	}
}

// WithResultValidation validates results of methods that declare a result
// schema.
func WithResultValidation(enabled bool) Option {
	return func(e *Engine) {
		e.validateResult = enabled
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New creates an engine serving desc through the builtin system.describe
// method.
func New(desc ServiceDescription, opts ...Option) (*Engine, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		description: desc,
		registry:    newRegistry(),
		validator:   schema.JSONSchemaValidator{},
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.source == nil {
		if e.validateParams {
			return nil, fmt.Errorf("%w: params", ErrValidationWithoutSchemas)
		}
		if e.validateResult {
			return nil, fmt.Errorf("%w: result", ErrValidationWithoutSchemas)
		}
	}

	describe, err := parseHandler(e.handleSystemDescribe)
	if err != nil {
		return nil, err
	}
	describe.name = DescribeMethod
	describe.system = true
	if err := e.registry.add(describe); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) handleSystemDescribe() (map[string]any, error) {
	return e.description.Describe(), nil
}

// Description returns the service description.
func (e *Engine) Description() ServiceDescription {
	return e.description
}

// Add registers handler. The method name is the handler's function name
// unless WithName is given. Its schemas come from the schema source unless
// given as options.
//
// Add returns a *DuplicateMethodNameError if the name is taken; the existing
// method is left untouched.
func (e *Engine) Add(handler any, opts ...MethodOption) error {
	m, err := parseHandler(handler)
	if err != nil {
		return err
	}
	var cfg methodConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	m.name = cfg.name
	if m.name == "" {
		m.name = handlerName(m.fn)
	}
	if m.name == "" {
		return fmt.Errorf("%w: cannot derive a method name, use WithName", ErrInvalidHandler)
	}
	if e.registry.has(m.name) {
		return &DuplicateMethodNameError{Name: m.name}
	}

	if e.source != nil && (!cfg.paramsSet || !cfg.resultSet) {
		set, err := e.source.Load(m.name)
		if err != nil {
			return fmt.Errorf("jsonrpc: loading schemas of %s: %w", m.name, err)
		}
		if set != nil {
			m.schemas = *set
		}
	}
	if cfg.paramsSet {
		m.schemas.Params, m.schemas.ParamsAbsent = cfg.schemas.Params, cfg.schemas.ParamsAbsent
	}
	if cfg.resultSet {
		m.schemas.Result, m.schemas.ResultAbsent = cfg.schemas.Result, cfg.schemas.ResultAbsent
	}

	if err := e.registry.add(m); err != nil {
		return err
	}
	e.log.Debug().Str("method", m.name).Stringer("convention", m.convention).Msg("jsonrpc method added")
	return nil
}

// MustAdd is like Add but panics on error.
func (e *Engine) MustAdd(handler any, opts ...MethodOption) {
	if err := e.Add(handler, opts...); err != nil {
		panic(err)
	}
}

// Names returns the registered method names, sorted.
func (e *Engine) Names() []string {
	return e.registry.names()
}

// Convention returns the calling convention of the named method.
func (e *Engine) Convention(name string) (Convention, bool) {
	m, ok := e.registry.lookup(name)
	if !ok {
		return 0, false
	}
	return m.convention, true
}

// Call handles a JSON request text and returns the JSON response text. It
// never fails: every problem is reported as an error response.
//
// options is handed to handlers through their context; see Options.
func (e *Engine) Call(ctx context.Context, text string, options any) string {
	var resp *Response
	var req *Request
	if v, err := parseJSON([]byte(text)); err != nil {
		resp = errorResponse(nil, newError(ParseError, map[string]any{"message": err.Error()}))
	} else {
		resp, req = e.dispatch(ctx, v, options)
	}

	out, err := encode(json.Marshal, resp)
	if err != nil {
		out, err = encode(json.Marshal, e.encodeFailure(req, err))
		if err != nil {
			// Only the echoed id can still fail to encode; drop it.
			out, _ = json.Marshal(errorResponse(nil, e.encodeFailure(nil, err).Error))
		}
	}
	return string(out)
}

// parseJSON decodes text, keeping the raw bytes of a top-level "id" so that
// it is echoed exactly as received.
func parseJSON(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if obj, ok := v.(map[string]any); ok {
		if _, hasID := obj["id"]; hasID {
			var members map[string]json.RawMessage
			if err := json.Unmarshal(data, &members); err == nil {
				obj["id"] = members["id"]
			}
		}
	}
	return v, nil
}

// CallValue handles an already decoded request, such as a map[string]any,
// and returns the response. It never fails.
func (e *Engine) CallValue(ctx context.Context, request any, options any) *Response {
	resp, _ := e.dispatch(ctx, request, options)
	return resp
}

// encodeFailure reports a response that could not be encoded as an
// unexpected exception in the method.
func (e *Engine) encodeFailure(req *Request, err error) *Response {
	name := ""
	if req != nil {
		name = req.Method
	}
	e.log.Warn().Err(err).Str("method", name).Msg("jsonrpc response not encodable")
	return errorResponse(req, exceptionError(name, unhandledFault{
		message:   err.Error(),
		traceback: traceback(2),
	}))
}

// dispatch runs the pipeline: envelope, lookup, params, invoke, result.
func (e *Engine) dispatch(ctx context.Context, raw any, options any) (*Response, *Request) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	req, violation := validateEnvelope(raw)
	if violation != nil {
		resp := errorResponse(req, violationError(InvalidRequest, violation))
		e.log.Debug().Str("error", violation.Message).Msg("jsonrpc invalid request")
		return resp, req
	}

	resp := e.handle(ctx, req, options)
	ev := e.log.Debug().Str("method", req.Method).Dur("elapsed", time.Since(start))
	if resp.Error != nil {
		ev = ev.Int("code", resp.Error.Code)
	}
	ev.Msg("jsonrpc call")
	return resp, req
}

func (e *Engine) handle(ctx context.Context, req *Request, options any) *Response {
	m, ok := e.registry.lookup(req.Method)
	if !ok {
		return errorResponse(req, methodNotFound(req.Method, e.registry.names()))
	}

	if rpcErr := e.checkParams(m, req); rpcErr != nil {
		return errorResponse(req, rpcErr.withMethod(m.name))
	}

	var params reflect.Value
	if m.params != nil {
		var err error
		if params, err = m.params.bind(req.Params); err != nil {
			return errorResponse(req, NewInvalidParams(err.Error()).withMethod(m.name))
		}
	}

	args := m.arguments(callContext(ctx, m.name, options), params)
	switch out := m.invoke(args).(type) {
	case returned:
		if rpcErr := e.checkResult(m, out.value); rpcErr != nil {
			return errorResponse(req, rpcErr.withMethod(m.name))
		}
		return resultResponse(req, out.value)
	case ApplicationError:
		return errorResponse(req, applicationError(m.name, out))
	case protocolError:
		return errorResponse(req, out.err.withMethod(m.name))
	case unhandledFault:
		e.log.Warn().Str("method", m.name).Str("error", out.message).Msg("jsonrpc unhandled fault")
		return errorResponse(req, exceptionError(m.name, out))
	}
	panic("jsonrpc: unknown outcome")
}

// applicationError passes a handler's error through, unless its code lies
// in the reserved band.
func applicationError(name string, app ApplicationError) *Error {
	if IsReservedCode(app.Code) {
		return newError(ReservedErrorCode, map[string]any{
			"message":  fmt.Sprintf("An error code was issued by the method which conflicts with the reserved range between %d and %d", ReservedCodeMin, ReservedCodeMax),
			"bad_code": app.Code,
			"method":   name,
		})
	}
	data := make(map[string]any, len(app.Data)+1)
	for k, v := range app.Data {
		data[k] = v
	}
	data["method"] = name
	return &Error{
		Name:    ErrorNameAPI,
		Code:    app.Code,
		Message: app.Message,
		Data:    data,
	}
}

func exceptionError(name string, fault unhandledFault) *Error {
	if fault.message == "" {
		fault.message = "Unknown exception"
	}
	return newError(ExceptionCallingMethod, map[string]any{
		"message":           "An unexpected exception was caught executing the method",
		"exception_message": fault.message,
		"method":            name,
		"traceback":         fault.traceback,
	})
}
