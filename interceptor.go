package restwire

import (
	"net/http"
)

// Call describes the outbound call an interceptor wraps.
type Call struct {
	Endpoint   EndpointID
	Method     string
	Invocation *Invocation
}

// Invoker sends a finalized request. It is passed to UnaryInterceptor
// functions to invoke the next interceptor or the transport client.
type Invoker func(req *http.Request) (*http.Response, error)

// UnaryInterceptor is a hook that wraps the execute stage of an invocation.
//
//	func timing(call *restwire.Call, req *http.Request, next restwire.Invoker) (*http.Response, error) {
//	    start := time.Now()
//	    resp, err := next(req)
//	    log.Printf("%s.%s took %v", call.Endpoint, call.Method, time.Since(start))
//	    return resp, err
//	}
//
// Interceptors can:
//   - Inspect/modify the request before calling next
//   - Inspect the response after calling next
//   - Short-circuit by returning an error without calling next
//
// A response returned by an interceptor is owned by the pipeline, which
// drains and closes it.
type UnaryInterceptor func(call *Call, req *http.Request, next Invoker) (*http.Response, error)

// chainInterceptors combines multiple interceptors into a single one.
// The first interceptor in the slice is the outer-most one (runs first).
func chainInterceptors(interceptors []UnaryInterceptor) UnaryInterceptor {
	if len(interceptors) == 0 {
		return nil
	}
	if len(interceptors) == 1 {
		return interceptors[0]
	}
	return func(call *Call, req *http.Request, next Invoker) (*http.Response, error) {
		// Chain: i[0] -> i[1] -> ... -> next
		chain := next
		for i := len(interceptors) - 1; i >= 0; i-- {
			current := interceptors[i]
			inner := chain
			chain = func(req *http.Request) (*http.Response, error) {
				return current(call, req, inner)
			}
		}
		return chain(req)
	}
}
