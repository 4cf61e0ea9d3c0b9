package restwire

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// HeaderPolicy controls whether header building runs for an endpoint.
type HeaderPolicy int

const (
	// InheritHeaders applies static and per-invocation headers.
	InheritHeaders HeaderPolicy = iota
	// SkipHeaders leaves RESTful requests without declared headers.
	// Basic endpoints always build headers.
	SkipHeaders
)

func (p HeaderPolicy) String() string {
	if p == SkipHeaders {
		return "skip"
	}
	return "inherit"
}

// buildHeaders applies the method's static headers in declaration order,
// then the header arguments in call order. A repeated name replaces the
// earlier value. Any failure is reported as header_build.
func buildHeaders(spec *RequestSpec, inv *Invocation) error {
	if err := applyHeaders(spec.Header, inv); err != nil {
		return Wrap(KindHeaderBuild, err, fmt.Sprintf("%s.%s", inv.Endpoint(), inv.Method.name)).
			WithDetails(map[string]any{
				"endpoint": string(inv.Endpoint()),
				"method":   inv.Method.name,
			})
	}
	return nil
}

func applyHeaders(h http.Header, inv *Invocation) error {
	for _, f := range inv.Method.headers {
		if err := setHeader(h, f.Name, f.Value); err != nil {
			return err
		}
	}
	for _, a := range inv.args(RoleHeader) {
		rv := reflect.ValueOf(a.Value)
		if !rv.IsValid() {
			continue
		}
		value, err := scalarString(a.Name, rv)
		if err != nil {
			return err
		}
		if err := setHeader(h, a.Name, value); err != nil {
			return err
		}
	}
	if inv.Method.returns != nil && categorize(inv.Method.returns) == CategoryStructured && h.Get("Accept") == "" {
		h.Set("Accept", inv.Definition.requestCodec().ContentType())
	}
	return nil
}

func setHeader(h http.Header, name, value string) error {
	if name == "" || strings.ContainsAny(name, " \t\r\n:") {
		return Errorf(KindHeaderBuild, "invalid header name %q", name)
	}
	if strings.ContainsAny(value, "\r\n") {
		return Errorf(KindHeaderBuild, "invalid value for header %q", name)
	}
	h.Set(name, value)
	return nil
}
