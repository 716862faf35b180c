package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		kind    ErrorKind
		code    int
		message string
	}{
		{ParseError, -32700, "Parse error"},
		{InvalidRequest, -32600, "Invalid Request"},
		{MethodNotFound, -32601, "Method not found"},
		{InvalidParams, -32602, "Invalid params"},
		{ExceptionCallingMethod, -32002, "Exception calling method"},
		{ReservedErrorCode, -32001, "Reserved Error Code"},
		{InvalidResult, -32003, "Invalid result"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.kind.Code())
			assert.Equal(t, tt.message, tt.kind.Message())
			assert.Equal(t, tt.message, tt.kind.String())
			assert.True(t, IsReservedCode(tt.kind.Code()))
		})
	}
	assert.Equal(t, "ErrorKind(99)", ErrorKind(99).String())
}

func TestErrorJSON(t *testing.T) {
	e := &Error{Name: ErrorNameJSONRPC, Code: CodeParseError, Message: "Parse error"}
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"JSONRPCError","code":-32700,"message":"Parse error","error":{}}`, string(data))

	var back Error
	require.NoError(t, json.Unmarshal([]byte(`{"name":"APIError","code":100,"message":"Entry not found","error":{"id":3}}`), &back))
	want := Error{Name: ErrorNameAPI, Code: 100, Message: "Entry not found", Data: map[string]any{"id": float64(3)}}
	if diff := cmp.Diff(want, back); diff != "" {
		t.Errorf("error mismatch (-want +got):\n%s", diff)
	}
}

func TestWithMethodCopies(t *testing.T) {
	orig := NewInvalidParams("bad")
	named := orig.withMethod("m")
	assert.Equal(t, map[string]any{"message": "bad"}, orig.Data)
	assert.Equal(t, map[string]any{"message": "bad", "method": "m"}, named.Data)
}

func TestAPIErrorIsCodedError(t *testing.T) {
	var err error = fmt.Errorf("wrapped: %w", NewAPIError(42, "answer").WithData(map[string]any{"k": "v"}))

	var coded CodedError
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, 42, coded.ErrorCode())
	assert.Equal(t, "answer", coded.ErrorMessage())

	app, ok := classify(err).(ApplicationError)
	require.True(t, ok)
	assert.Equal(t, ApplicationError{Code: 42, Message: "answer", Data: map[string]any{"k": "v"}}, app)
}

func TestClassify(t *testing.T) {
	_, ok := classify(NewInvalidRequest("no")).(protocolError)
	assert.True(t, ok)

	fault, ok := classify(errors.New("plain")).(unhandledFault)
	require.True(t, ok)
	assert.Equal(t, "plain", fault.message)
	assert.NotEmpty(t, fault.traceback)
}

func TestApplicationErrorMapping(t *testing.T) {
	got := applicationError("m", ApplicationError{Code: -32768, Message: "low"})
	assert.Equal(t, CodeReservedErrorCode, got.Code)
	assert.Equal(t, -32768, got.Data["bad_code"])
	assert.Equal(t, "An error code was issued by the method which conflicts with the reserved range between -32768 and -32000", got.Data["message"])

	got = applicationError("m", ApplicationError{Code: -31999, Message: "ok"})
	assert.Equal(t, &Error{Name: ErrorNameAPI, Code: -31999, Message: "ok", Data: map[string]any{"method": "m"}}, got)
}

func TestExceptionErrorDefaultsMessage(t *testing.T) {
	got := exceptionError("m", unhandledFault{traceback: []string{"frame"}})
	assert.Equal(t, "Unknown exception", got.Data["exception_message"])
	assert.Equal(t, []string{"frame"}, got.Data["traceback"])
}

func TestDescribeOmitsEmptyFields(t *testing.T) {
	desc := ServiceDescription{Name: "n", ID: "i"}
	require.NoError(t, desc.Validate())
	assert.Equal(t, map[string]any{"sdversion": "1.0", "name": "n", "id": "i"}, desc.Describe())
}

func TestDescribeValidateAggregates(t *testing.T) {
	err := ServiceDescription{Version: "x.y.z"}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDescription)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "id is required")
	assert.Contains(t, err.Error(), "version")
}
