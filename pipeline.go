package restwire

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// maxErrorBody caps the body kept on a StatusError.
const maxErrorBody = 4 << 10

// invoke runs the pipeline for one call:
//
//	validate -> build_uri -> build_headers -> build_body -> resolve_client -> execute -> parse_response
//
// The first failing stage ends the call. The response body is drained and
// closed on every path once execute has produced a response.
func (p *Proxy) invoke(ctx context.Context, inv *Invocation) (any, error) {
	def := p.def
	name := inv.Method.name

	desc, err := def.Descriptor()
	if err != nil {
		return nil, p.fail(name, StageValidate, err)
	}

	spec, err := def.builder.build(desc.BaseURI(), inv)
	if err != nil {
		return nil, p.fail(name, StageBuildURI, err)
	}

	if def.buildsHeaders() {
		if err := buildHeaders(spec, inv); err != nil {
			return nil, p.fail(name, StageBuildHeaders, err)
		}
	}

	if def.builder == RESTful {
		if err := attachBody(spec, inv); err != nil {
			return nil, p.fail(name, StageBuildBody, err)
		}
	}

	client := def.registry.clients.Get(def.id)
	if client == nil {
		return nil, p.fail(name, StageResolveClient, Errorf(KindExecution, "no client bound to %s", def.id))
	}
	if client.IsShutdown() {
		return nil, p.fail(name, StageResolveClient, Wrap(KindExecution, ErrClientClosed, ""))
	}

	req, err := spec.HTTPRequest(ctx)
	if err != nil {
		return nil, p.fail(name, StageExecute, Wrap(KindRequestBuild, err, "finalize request"))
	}

	resp, err := p.execute(client, inv, req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			drain(resp)
		}
		return nil, p.fail(name, StageExecute, err)
	}
	if resp == nil {
		return nil, p.fail(name, StageExecute, Errorf(KindExecution, "no response"))
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, p.fail(name, StageExecute, Wrap(KindExecution, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}, "").WithDetail("status", resp.StatusCode))
	}

	result, err := parseResponse(resp, inv)
	if err != nil {
		return nil, p.fail(name, StageParseResponse, err)
	}
	return result, nil
}

// execute sends req through the interceptor chain and the client.
func (p *Proxy) execute(client *Client, inv *Invocation, req *http.Request) (*http.Response, error) {
	reg := p.def.registry
	all := make([]UnaryInterceptor, 0, len(reg.interceptors)+len(p.def.interceptors))
	all = append(all, reg.interceptors...)
	all = append(all, p.def.interceptors...)

	call := &Call{
		Endpoint:   p.def.id,
		Method:     inv.Method.name,
		Invocation: inv,
	}
	if chain := chainInterceptors(all); chain != nil {
		return chain(call, req, client.Do)
	}
	return client.Do(req)
}

// fail classifies err for stage and attaches the call's identifiers.
func (p *Proxy) fail(method string, stage Stage, err error) error {
	var se *Error
	if !errors.As(err, &se) {
		err = Wrap(stage.kind(), err, "")
	}
	ie := &InvocationError{
		Endpoint: p.def.id,
		Method:   method,
		Stage:    stage,
		Err:      err,
	}
	p.def.registry.log().Debug("invocation failed",
		slog.String("endpoint", string(ie.Endpoint)),
		slog.String("method", method),
		slog.String("stage", stage.String()),
		slog.Any("error", err))
	return ie
}

// drain consumes what is left of the body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
