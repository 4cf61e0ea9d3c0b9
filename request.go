package restwire

import (
	"bytes"
	"context"
	"encoding"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
)

var schemaEncoder = schema.NewEncoder()

// placeholder matches a :name path parameter in a sub-path template.
var placeholder = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// RequestSpec is the unsent request, populated stage by stage.
type RequestSpec struct {
	Verb        Verb
	URL         *url.URL
	Header      http.Header
	Body        []byte
	ContentType string
	hasBody     bool
}

// HasBody reports whether a body has been attached.
func (s *RequestSpec) HasBody() bool { return s.hasBody }

// HTTPRequest finalizes the spec into an outbound request.
func (s *RequestSpec) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if s.hasBody {
		body = bytes.NewReader(s.Body)
	}
	req, err := http.NewRequestWithContext(ctx, string(s.Verb), s.URL.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header = s.Header.Clone()
	if s.hasBody && s.ContentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", s.ContentType)
	}
	return req, nil
}

// BuilderKind selects the request building strategy of an endpoint.
type BuilderKind int

const (
	// Basic builds the URI, selects the verb and attaches the body in one step.
	Basic BuilderKind = iota
	// RESTful builds the URI and selects the verb; the body is attached by
	// the separate build_body stage.
	RESTful
)

func (k BuilderKind) String() string {
	switch k {
	case Basic:
		return "basic"
	case RESTful:
		return "restful"
	default:
		return "unknown"
	}
}

// ParseBuilderKind parses "basic" or "restful"; empty means Basic.
func ParseBuilderKind(s string) (BuilderKind, error) {
	switch strings.ToLower(s) {
	case "", "basic":
		return Basic, nil
	case "restful":
		return RESTful, nil
	default:
		return Basic, fmt.Errorf("unknown builder %q", s)
	}
}

// build produces the unsent request for inv against base.
func (k BuilderKind) build(base *url.URL, inv *Invocation) (*RequestSpec, error) {
	path, err := ResolvePath(inv.Method.path, inv.args(RolePath))
	if err != nil {
		return nil, err
	}

	u := *base
	u.Path = joinPath(base.Path, path)
	u.RawPath = ""
	if escaped := joinPath(base.EscapedPath(), escapedPath(inv.Method.path, inv.args(RolePath))); escaped != u.Path {
		u.RawPath = escaped
	}

	query, err := encodeQuery(inv.args(RoleQuery))
	if err != nil {
		return nil, err
	}
	u.RawQuery = query.Encode()

	spec := &RequestSpec{
		Verb:   inv.Method.Verb(),
		URL:    &u,
		Header: make(http.Header),
	}
	if k == Basic {
		if err := attachBody(spec, inv); err != nil {
			return nil, err
		}
	}
	return spec, nil
}

// ResolvePath substitutes every :name placeholder in template with the
// string value of the path argument of the same name. Path arguments with
// no placeholder are ignored.
func ResolvePath(template string, args []Arg) (string, error) {
	values, err := pathValues(args)
	if err != nil {
		return "", err
	}
	var missing error
	out := placeholder.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1:]
		v, ok := values[name]
		if !ok {
			if missing == nil {
				missing = Errorf(KindMissingPathParameter, "no argument for path parameter %q", name).
					WithDetail("parameter", name)
			}
			return m
		}
		return v
	})
	if missing != nil {
		return "", missing
	}
	return out, nil
}

// escapedPath is ResolvePath with each substituted value path-escaped.
// It is only called after ResolvePath succeeded.
func escapedPath(template string, args []Arg) string {
	values, _ := pathValues(args)
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		if v, ok := values[m[1:]]; ok {
			return url.PathEscape(v)
		}
		return m
	})
}

func pathValues(args []Arg) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, a := range args {
		rv := reflect.ValueOf(a.Value)
		if !rv.IsValid() || rv.Kind() != reflect.String {
			return nil, Errorf(KindTypeMismatch, "path parameter %q must be a string, got %T", a.Name, a.Value).
				WithDetail("parameter", a.Name)
		}
		values[a.Name] = rv.String()
	}
	return values, nil
}

func joinPath(base, sub string) string {
	switch {
	case sub == "":
		return base
	case base == "":
		return sub
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(sub, "/")
}

// encodeQuery converts query arguments to URL values. Struct values are
// encoded field by field using their `schema` tags.
func encodeQuery(args []Arg) (url.Values, error) {
	values := make(url.Values)
	for _, a := range args {
		rv := reflect.ValueOf(a.Value)
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				break
			}
			rv = rv.Elem()
		}
		if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
			continue
		}
		if _, text := rv.Interface().(encoding.TextMarshaler); rv.Kind() == reflect.Struct && !text {
			if err := schemaEncoder.Encode(rv.Interface(), values); err != nil {
				return nil, Wrap(KindRequestBuild, err, fmt.Sprintf("encode query %q", a.Name))
			}
			continue
		}
		if a.Name == "" {
			return nil, Errorf(KindRequestBuild, "unnamed query argument of type %T", a.Value)
		}
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < rv.Len(); i++ {
				s, err := scalarString(a.Name, rv.Index(i))
				if err != nil {
					return nil, err
				}
				values.Add(a.Name, s)
			}
			continue
		}
		s, err := scalarString(a.Name, rv)
		if err != nil {
			return nil, err
		}
		values.Add(a.Name, s)
	}
	return values, nil
}

func scalarString(name string, rv reflect.Value) (string, error) {
	if m, ok := rv.Interface().(encoding.TextMarshaler); ok {
		b, err := m.MarshalText()
		if err != nil {
			return "", Wrap(KindTypeMismatch, err, fmt.Sprintf("query parameter %q", name)).WithDetail("parameter", name)
		}
		return string(b), nil
	}
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return s.String(), nil
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	}
	return "", Errorf(KindTypeMismatch, "query parameter %q cannot be %s", name, rv.Type()).
		WithDetail("parameter", name)
}

// attachBody encodes the body argument, if any, onto spec.
func attachBody(spec *RequestSpec, inv *Invocation) error {
	bodies := inv.args(RoleBody)
	switch len(bodies) {
	case 0:
		return nil
	case 1:
	default:
		return Errorf(KindRequestBuild, "%s has %d body arguments", inv.Method.name, len(bodies))
	}

	switch v := bodies[0].Value.(type) {
	case nil:
		return nil
	case []byte:
		spec.Body = v
		spec.ContentType = "application/octet-stream"
	case string:
		spec.Body = []byte(v)
		spec.ContentType = "text/plain; charset=utf-8"
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return Wrap(KindRequestBuild, err, "read body")
		}
		spec.Body = data
		spec.ContentType = "application/octet-stream"
	default:
		codec := inv.Definition.requestCodec()
		data, err := codec.Marshal(v)
		if err != nil {
			return Wrap(KindRequestBuild, err, "encode body with "+codec.ContentType())
		}
		spec.Body = data
		spec.ContentType = codec.ContentType()
	}
	spec.hasBody = true
	return nil
}
