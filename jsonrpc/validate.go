package jsonrpc

import (
	"encoding/json"
)

// Messages of the params checks.
const (
	msgUnexpectedParams  = "Method has no parameters specified, but arguments were provided"
	msgMissingParams     = "Method has parameters specified, but none were provided"
	msgNoParamsValidator = "Validation is enabled, but no parameter validator was provided"
	msgUnexpectedResult  = "The method is specified to not return a result, yet a value was returned"
)

// checkParams applies the arity and schema rules to the request params.
func (e *Engine) checkParams(m *method, req *Request) *Error {
	switch m.convention {
	case NoArgs, ContextOnly:
		if req.HasParams {
			return NewInvalidParams(msgUnexpectedParams)
		}
	case ParamsOnly, ParamsAndContext:
		if !req.HasParams {
			return NewInvalidParams(msgMissingParams)
		}
	}
	if m.system {
		return nil
	}

	if e.validateParams && !m.schemas.HasParams() {
		return NewInvalidParams(msgNoParamsValidator)
	}
	if m.schemas.ParamsAbsent && req.HasParams {
		return NewInvalidParams(msgUnexpectedParams)
	}
	if m.schemas.Params != nil && req.HasParams {
		value, err := normalize(req.Params)
		if err != nil {
			return NewInvalidParams(err.Error())
		}
		if v := e.validator.Validate(m.schemas.Params, value); v != nil {
			return violationError(InvalidParams, v)
		}
	}
	return nil
}

// checkResult validates a handler's return value when result validation is
// enabled and the method declares its result.
func (e *Engine) checkResult(m *method, result any) *Error {
	if !e.validateResult || m.system {
		return nil
	}
	if m.schemas.ResultAbsent {
		if result != nil {
			return newError(InvalidResult, map[string]any{
				"message": msgUnexpectedResult,
				"value":   result,
			})
		}
		return nil
	}
	if m.schemas.Result == nil {
		return nil
	}
	value, err := normalize(result)
	if err != nil {
		return exceptionError(m.name, unhandledFault{message: err.Error(), traceback: traceback(2)})
	}
	if v := e.validator.Validate(m.schemas.Result, value); v != nil {
		return violationError(InvalidResult, v)
	}
	return nil
}

// normalize converts v to the generic values produced by decoding JSON.
func normalize(v any) (any, error) {
	data, err := encode(json.Marshal, v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
