// Package jsonrpc provides a transport-independent JSON-RPC 1.1 dispatch engine.
//
// The engine turns a request into a call against a registered handler,
// validates the request envelope and the method's params and result against
// schemas, and always produces a well-formed response. Protocol and
// application failures never escape as Go errors or panics; they are
// reported as error responses.
//
// # Basic Usage
//
// Create an engine, add methods and call it with request text:
//
//	e, err := jsonrpc.New(jsonrpc.ServiceDescription{
//	    Name: "Example Service",
//	    ID:   "https://example.com/service",
//	})
//	e.Add(subtract)
//	resp := e.Call(ctx, `{"version":"1.1","method":"subtract","params":[42,23]}`, nil)
//	// {"version":"1.1","result":19}
//
// CallValue takes an already decoded request, such as a map[string]any, and
// returns a *Response. CallCBOR does the same for CBOR encoded requests.
// Wiring any of them to HTTP or another transport is left to the caller.
//
// # Handlers
//
// A handler is any function with one of these shapes:
//
//	func() (R, error)
//	func(ctx context.Context) (R, error)
//	func(params P) (R, error)
//	func(params P, ctx context.Context) (R, error)
//
// Handlers may also return just error, just R, or nothing. The calling
// convention is resolved once by Add. Handlers that do not take params
// reject requests carrying params, and handlers that take params reject
// requests without them.
//
// When P is any, the decoded params (a []any or map[string]any) are passed
// as-is. Other types are decoded from the params using json tags. A struct
// accepts named params and positional params, which map onto its fields in
// declaration order:
//
//	type AddParams struct {
//	    A int `json:"a"`
//	    B int `json:"b"`
//	}
//
//	func add(p AddParams) (int, error) {
//	    return p.A + p.B, nil
//	}
//
// The context carries the options value passed to Call (see Options) and
// the method name (see MethodName).
//
// # Method Names
//
// A method is registered under its function name unless WithName is given:
//
//	e.Add(subtract)                       // -> "subtract"
//	e.Add(db.Get)                         // -> "Get"
//	e.Add(db.Add, jsonrpc.WithName("new")) // -> "new"
//
// Adding a name twice returns a *DuplicateMethodNameError. The builtin
// system.describe method returns the ServiceDescription.
//
// # Error Handling
//
// Return a CodedError, such as an *APIError, to respond with your own code:
//
//	return nil, jsonrpc.NewAPIError(100, "Entry not found").WithData(map[string]any{"id": id})
//
// Codes between -32768 and -32000 are reserved; an application error using
// one is reported as Reserved Error Code with the offending code in
// "bad_code". Any other error, and any panic, is reported as Exception
// calling method with the error text and a traceback.
//
// The engine's own errors use these codes:
//   - CodeParseError (-32700)
//   - CodeInvalidRequest (-32600)
//   - CodeMethodNotFound (-32601)
//   - CodeInvalidParams (-32602)
//   - CodeReservedErrorCode (-32001)
//   - CodeExceptionCallingMethod (-32002)
//   - CodeInvalidResult (-32003)
//
// # Validation
//
// Schemas for a method come from a schema.Source given with
// WithSchemaSource, or from WithParamsSchema and WithResultSchema.
// Params are validated whenever a params schema exists. WithParamsValidation
// additionally requires every method to declare its params, and
// WithResultValidation checks results against declared result schemas.
package jsonrpc
