package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the protocol version carried by every response.
const Version = "1.1"

// Response is a JSON-RPC 1.1 response. Exactly one of Result and Error is
// meaningful: a nil Error means success, even when Result is nil.
type Response struct {
	Version string
	// ID echoes the request id. It is only meaningful when HasID is set,
	// which distinguishes an absent id from a null one.
	ID     any
	HasID  bool
	Result any
	Error  *Error
}

func resultResponse(req *Request, result any) *Response {
	resp := &Response{Version: Version, Result: result}
	echoID(resp, req)
	return resp
}

func errorResponse(req *Request, err *Error) *Response {
	resp := &Response{Version: Version, Error: err}
	echoID(resp, req)
	return resp
}

func echoID(resp *Response, req *Request) {
	if req != nil && req.HasID {
		resp.ID, resp.HasID = req.ID, true
	}
}

// Map returns the structured form of r.
func (r *Response) Map() map[string]any {
	m := map[string]any{"version": r.Version}
	if r.HasID {
		m["id"] = r.ID
	}
	if r.Error != nil {
		m["error"] = r.Error.Map()
	} else {
		m["result"] = r.Result
	}
	return m
}

// MarshalJSON writes the members in the order version, id, result/error.
func (r *Response) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"version":`)
	if err := writeJSON(&buf, r.Version); err != nil {
		return nil, err
	}
	if r.HasID {
		buf.WriteString(`,"id":`)
		if err := writeJSON(&buf, r.ID); err != nil {
			return nil, err
		}
	}
	if r.Error != nil {
		buf.WriteString(`,"error":`)
		if err := writeJSON(&buf, r.Error); err != nil {
			return nil, err
		}
	} else {
		buf.WriteString(`,"result":`)
		if err := writeJSON(&buf, r.Result); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encode runs marshal on v, reporting a panic raised by one of v's
// marshalers as an error.
func encode(marshal func(any) ([]byte, error), v any) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("encoding panicked: %s", panicMessage(r))
		}
	}()
	return marshal(v)
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	*r = Response{}
	if v, ok := members["version"]; ok {
		if err := json.Unmarshal(v, &r.Version); err != nil {
			return err
		}
	}
	if v, ok := members["id"]; ok {
		r.HasID = true
		if err := json.Unmarshal(v, &r.ID); err != nil {
			return err
		}
	}
	if v, ok := members["error"]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		r.Error = &Error{}
		return json.Unmarshal(v, r.Error)
	}
	v, ok := members["result"]
	if !ok {
		return errors.New("jsonrpc: response has neither result nor error")
	}
	return json.Unmarshal(v, &r.Result)
}
