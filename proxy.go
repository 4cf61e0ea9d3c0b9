package restwire

import (
	"context"
)

// Proxy executes invocations of one endpoint type. Typed proxies embed or
// wrap it and forward each interface method to Call.
//
//	type feedsProxy struct{ p *restwire.Proxy }
//
//	func (f *feedsProxy) Feed(ctx context.Context, user string) (*Feed, error) {
//	    return restwire.Result[*Feed](f.p.Call(ctx, "Feed", user))
//	}
type Proxy struct {
	def *Definition
}

// Definition returns the definition the proxy was created from.
func (p *Proxy) Definition() *Definition { return p.def }

// Call invokes the named method with positional values, which are tagged
// with the roles declared by Method.Params.
func (p *Proxy) Call(ctx context.Context, method string, values ...any) (any, error) {
	m, err := p.method(method)
	if err != nil {
		return nil, err
	}
	args, err := tagArgs(m, values)
	if err != nil {
		return nil, p.fail(m.name, StageBuildURI, err)
	}
	return p.invoke(ctx, &Invocation{Definition: p.def, Method: m, Args: args})
}

// CallArgs invokes the named method with pre-tagged arguments.
func (p *Proxy) CallArgs(ctx context.Context, method string, args ...Arg) (any, error) {
	m, err := p.method(method)
	if err != nil {
		return nil, err
	}
	return p.invoke(ctx, &Invocation{Definition: p.def, Method: m, Args: args})
}

func (p *Proxy) method(name string) (*Method, error) {
	m, ok := p.def.Method(name)
	if !ok {
		return nil, p.fail(name, StageValidate, Errorf(KindInvocation, "%s has no method %q", p.def.id, name))
	}
	return m, nil
}

// Result converts the untyped result of Call to T. A nil result, as
// returned for void methods or on error, yields the zero value.
func Result[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, Errorf(KindResponseParse, "result is %T, not %s", v, TypeOf[T]())
	}
	return t, nil
}
