package jsonrpc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

type contextKey int

const (
	optionsKey contextKey = iota
	methodKey
)

// Options returns the runtime options value passed to Call for the call
// carried by ctx.
func Options(ctx context.Context) any {
	return ctx.Value(optionsKey)
}

// MethodName returns the name of the method being invoked with ctx.
func MethodName(ctx context.Context) string {
	name, _ := ctx.Value(methodKey).(string)
	return name
}

func callContext(ctx context.Context, name string, options any) context.Context {
	ctx = context.WithValue(ctx, methodKey, name)
	return context.WithValue(ctx, optionsKey, options)
}

// outcome is the result of invoking a handler: returned, ApplicationError,
// protocolError or unhandledFault.
type outcome interface {
	isOutcome()
}

// returned is a normal return.
type returned struct {
	value any
}

// ApplicationError is a failure a handler reported through a CodedError.
type ApplicationError struct {
	Code    int
	Message string
	Data    map[string]any
}

// protocolError is an engine *Error returned by a handler.
type protocolError struct {
	err *Error
}

// unhandledFault is any other error or a panic.
type unhandledFault struct {
	message   string
	traceback []string
}

func (returned) isOutcome()         {}
func (ApplicationError) isOutcome() {}
func (protocolError) isOutcome()    {}
func (unhandledFault) isOutcome()   {}

// maxFrames bounds the traceback of an unhandled fault.
const maxFrames = 64

// arguments builds the argument list for m's convention.
func (m *method) arguments(ctx context.Context, params reflect.Value) []reflect.Value {
	switch m.convention {
	case NoArgs:
		return nil
	case ContextOnly:
		return []reflect.Value{reflect.ValueOf(&ctx).Elem()}
	case ParamsOnly:
		return []reflect.Value{params}
	case ParamsAndContext:
		if m.contextFirst {
			return []reflect.Value{reflect.ValueOf(&ctx).Elem(), params}
		}
		return []reflect.Value{params, reflect.ValueOf(&ctx).Elem()}
	}
	panic(fmt.Sprintf("jsonrpc: unknown convention %v", m.convention))
}

// invoke calls the handler and classifies what happened. It never panics.
func (m *method) invoke(args []reflect.Value) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = unhandledFault{message: panicMessage(r), traceback: traceback(3)}
		}
	}()

	results := m.fn.Call(args)

	if m.errorIndex >= 0 {
		if errV := results[m.errorIndex]; !errV.IsNil() {
			return classify(errV.Interface().(error))
		}
	}
	if m.resultIndex < 0 {
		return returned{}
	}
	return returned{value: resultValue(results[m.resultIndex])}
}

// resultValue unwraps a handler result, turning typed nils into nil.
func resultValue(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}

func classify(err error) outcome {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return protocolError{err: rpcErr}
	}
	var coded CodedError
	if errors.As(err, &coded) {
		app := ApplicationError{Code: coded.ErrorCode(), Message: coded.ErrorMessage()}
		if d, ok := coded.(interface{ ErrorData() map[string]any }); ok {
			app.Data = d.ErrorData()
		}
		return app
	}
	return unhandledFault{message: err.Error(), traceback: traceback(3)}
}

func panicMessage(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(r)
}

// traceback renders the current call stack, innermost frame first, skipping
// skip frames and the runtime's own frames.
func traceback(skip int) []string {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var lines []string
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			lines = append(lines, fmt.Sprintf("%s (%s:%d)", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	if len(lines) == 0 {
		lines = append(lines, "<no frames>")
	}
	return lines
}
