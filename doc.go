// Package restwire turns declared Go interfaces into HTTP clients.
//
// An endpoint interface is declared once with its base address and a
// descriptor per method (verb, sub-path template, static headers, argument
// roles, return type). The registry hands out a single proxy per endpoint
// type; each call on the proxy runs the invocation pipeline:
//
//	validate -> build_uri -> build_headers -> build_body -> resolve_client -> execute -> parse_response
//
// Any failure ends the call with an *InvocationError naming the endpoint,
// the method and the stage.
//
// # Declaring an endpoint
//
//	type Feeds interface {
//	    Feed(ctx context.Context, user string) (*Feed, error)
//	}
//
//	type feedsProxy struct{ p *restwire.Proxy }
//
//	func (f *feedsProxy) Feed(ctx context.Context, user string) (*Feed, error) {
//	    return restwire.Result[*Feed](f.p.Call(ctx, "Feed", user))
//	}
//
//	restwire.Define[Feeds](restwire.DefaultRegistry,
//	    &restwire.Endpoint{Scheme: "http", Host: "api.example.com", BasePath: "/v1"},
//	    func(p *restwire.Proxy) Feeds { return &feedsProxy{p} }).
//	    Register("Feed", restwire.GET("/:user/feed").
//	        Params(restwire.PathParam("user")).
//	        Returns(restwire.TypeOf[*Feed]()))
//
//	feeds, err := restwire.Provide[Feeds](restwire.DefaultRegistry)
//
// The restwire command generates the proxy type and the Define call from
// //restwire: directives on the interface.
//
// # Directories
//
// Endpoints maps each endpoint type to its one proxy; Clients maps each
// endpoint type to the transport client it uses, falling back to a default
// client. Replacing or removing a client binding shuts the old client down
// before the directory is unlocked; a caller still holding it gets
// ErrClientClosed.
package restwire
