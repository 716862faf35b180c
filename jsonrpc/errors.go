package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mnehpets/jsonrpc11base/schema"
)

const (
	CodeParseError             = -32700
	CodeInvalidRequest         = -32600
	CodeMethodNotFound         = -32601
	CodeInvalidParams          = -32602
	CodeReservedErrorCode      = -32001
	CodeExceptionCallingMethod = -32002
	CodeInvalidResult          = -32003
)

// The band of codes reserved for protocol and system errors. Application
// errors must use codes outside it.
const (
	ReservedCodeMin = -32768
	ReservedCodeMax = -32000
)

// IsReservedCode reports whether code lies in the reserved band.
func IsReservedCode(code int) bool {
	return code >= ReservedCodeMin && code <= ReservedCodeMax
}

var (
	ErrInvalidHandler           = errors.New("jsonrpc: invalid handler")
	ErrValidationWithoutSchemas = errors.New("jsonrpc: validation enabled without a schema source")
	ErrInvalidDescription       = errors.New("jsonrpc: invalid service description")
)

// DuplicateMethodNameError is returned by Add when the resolved method name
// is already registered.
type DuplicateMethodNameError struct {
	Name string
}

func (e *DuplicateMethodNameError) Error() string {
	return fmt.Sprintf("Method %q already registered", e.Name)
}

// ErrorKind enumerates the errors the engine itself produces.
type ErrorKind int

const (
	ParseError ErrorKind = iota + 1
	InvalidRequest
	MethodNotFound
	InvalidParams
	ExceptionCallingMethod
	ReservedErrorCode
	InvalidResult
)

var kinds = map[ErrorKind]struct {
	code    int
	message string
}{
	ParseError:             {CodeParseError, "Parse error"},
	InvalidRequest:         {CodeInvalidRequest, "Invalid Request"},
	MethodNotFound:         {CodeMethodNotFound, "Method not found"},
	InvalidParams:          {CodeInvalidParams, "Invalid params"},
	ExceptionCallingMethod: {CodeExceptionCallingMethod, "Exception calling method"},
	ReservedErrorCode:      {CodeReservedErrorCode, "Reserved Error Code"},
	InvalidResult:          {CodeInvalidResult, "Invalid result"},
}

// Code returns the numeric code of k.
func (k ErrorKind) Code() int {
	return kinds[k].code
}

// Message returns the top-level message of k.
func (k ErrorKind) Message() string {
	return kinds[k].message
}

func (k ErrorKind) String() string {
	if m, ok := kinds[k]; ok {
		return m.message
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Names of error payloads.
const (
	ErrorNameJSONRPC = "JSONRPCError"
	ErrorNameAPI     = "APIError"
)

// Error is the error member of a JSON-RPC 1.1 response.
//
// Handlers may return an *Error built with one of the New* constructors to
// report a protocol error themselves; it is passed through unchanged.
type Error struct {
	Name    string
	Code    int
	Message string
	// Data is the kind-specific nested "error" object. It is never nil on
	// errors produced by the engine.
	Data map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, data map[string]any) *Error {
	if data == nil {
		data = map[string]any{}
	}
	return &Error{
		Name:    ErrorNameJSONRPC,
		Code:    kind.Code(),
		Message: kind.Message(),
		Data:    data,
	}
}

// NewInvalidParams builds an Invalid params error with an explanatory message.
func NewInvalidParams(message string) *Error {
	return newError(InvalidParams, map[string]any{"message": message})
}

// NewInvalidRequest builds an Invalid Request error with an explanatory message.
func NewInvalidRequest(message string) *Error {
	return newError(InvalidRequest, map[string]any{"message": message})
}

// violationError builds an error of kind from a schema violation, keeping
// whatever path/value detail the validator supplied.
func violationError(kind ErrorKind, v *schema.Violation) *Error {
	data := map[string]any{"message": v.Message}
	if v.Path != "" {
		data["path"] = v.Path
	}
	if v.Value != nil {
		data["value"] = v.Value
	}
	return newError(kind, data)
}

func methodNotFound(name string, available []string) *Error {
	return newError(MethodNotFound, map[string]any{
		"method":            name,
		"available_methods": available,
	})
}

// withMethod returns a copy of e whose payload names the method.
func (e *Error) withMethod(name string) *Error {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data["method"] = name
	out := *e
	out.Data = data
	return &out
}

// Map returns the structured form of e.
func (e *Error) Map() map[string]any {
	data := e.Data
	if data == nil {
		data = map[string]any{}
	}
	return map[string]any{
		"name":    e.Name,
		"code":    e.Code,
		"message": e.Message,
		"error":   data,
	}
}

type wireError struct {
	Name    string         `json:"name"`
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"error"`
}

func (e *Error) MarshalJSON() ([]byte, error) {
	w := wireError{Name: e.Name, Code: e.Code, Message: e.Message, Data: e.Data}
	if w.Data == nil {
		w.Data = map[string]any{}
	}
	return json.Marshal(w)
}

func (e *Error) UnmarshalJSON(data []byte) error {
	var w wireError
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Error(w)
	return nil
}

// CodedError is an application error carrying its own code and message.
// Handlers return one (possibly wrapped) to produce an error response with
// that code. Implementations may also provide
//
//	ErrorData() map[string]any
//
// to attach diagnostic data to the nested error object. Its "method" key is
// replaced by the name of the failing method.
type CodedError interface {
	error
	ErrorCode() int
	ErrorMessage() string
}

// APIError is a ready-made CodedError.
type APIError struct {
	Code    int
	Message string
	Data    map[string]any
}

// NewAPIError creates an application error. Codes in the reserved band are
// reported to clients as Reserved Error Code.
func NewAPIError(code int, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// WithData attaches diagnostic data and returns e. The "method" key is
// reserved: the engine sets it to the name of the method that failed.
func (e *APIError) WithData(data map[string]any) *APIError {
	e.Data = data
	return e
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) ErrorCode() int { return e.Code }

func (e *APIError) ErrorMessage() string { return e.Message }

func (e *APIError) ErrorData() map[string]any { return e.Data }
