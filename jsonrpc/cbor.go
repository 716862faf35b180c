package jsonrpc

import (
	"context"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// cborDecMode decodes CBOR maps into map[string]any, matching decoded JSON.
var cborDecMode = mustDecMode(cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]any(nil)),
})

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	dm, err := opts.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

// CallCBOR is Call for requests and responses encoded as CBOR. Decoded
// params are normalised to the values JSON decoding produces, so handlers
// see the same types whichever surface is used. The id is echoed as decoded.
func (e *Engine) CallCBOR(ctx context.Context, data []byte, options any) []byte {
	var resp *Response
	var req *Request

	var v any
	err := cborDecMode.Unmarshal(data, &v)
	if err == nil {
		var normalized any
		if normalized, err = normalize(v); err == nil {
			obj, isObj := normalized.(map[string]any)
			orig, _ := v.(map[string]any)
			if id, hasID := orig["id"]; isObj && hasID {
				obj["id"] = id
			}
			resp, req = e.dispatch(ctx, normalized, options)
		}
	}
	if err != nil {
		resp = errorResponse(nil, newError(ParseError, map[string]any{"message": err.Error()}))
	}

	out, err := encode(cbor.Marshal, resp.Map())
	if err != nil {
		out, err = encode(cbor.Marshal, e.encodeFailure(req, err).Map())
		if err != nil {
			out, _ = cbor.Marshal(errorResponse(nil, e.encodeFailure(nil, err).Error).Map())
		}
	}
	return out
}
