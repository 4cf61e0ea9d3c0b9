package restwire

import (
	"net/http"
	"reflect"
)

// Verb is the HTTP method a declared method is sent with.
type Verb string

const (
	VerbGet    Verb = http.MethodGet
	VerbPost   Verb = http.MethodPost
	VerbPut    Verb = http.MethodPut
	VerbDelete Verb = http.MethodDelete
)

// HeaderField is a single static header declared on a method.
type HeaderField struct {
	Name  string
	Value string
}

// Method is the static descriptor of one endpoint method. It is built once
// at registration and never modified by an invocation.
type Method struct {
	name     string
	verb     Verb // empty means unspecified
	path     string
	headers  []HeaderField
	params   []Param
	returns  reflect.Type
	selector string
}

// Request creates a method descriptor with no declared verb; it is sent as GET.
func Request(path string) *Method {
	return &Method{path: path}
}

// GET creates a GET method descriptor for the path template.
func GET(path string) *Method { return &Method{verb: VerbGet, path: path} }

// POST creates a POST method descriptor for the path template.
func POST(path string) *Method { return &Method{verb: VerbPost, path: path} }

// PUT creates a PUT method descriptor for the path template.
func PUT(path string) *Method { return &Method{verb: VerbPut, path: path} }

// DELETE creates a DELETE method descriptor for the path template.
func DELETE(path string) *Method { return &Method{verb: VerbDelete, path: path} }

// Header appends a static header. Static headers are applied in declaration
// order before any per-invocation header.
func (m *Method) Header(name, value string) *Method {
	m.headers = append(m.headers, HeaderField{Name: name, Value: value})
	return m
}

// Params sets the role of each positional call argument.
func (m *Method) Params(params ...Param) *Method {
	m.params = append(m.params[:0:0], params...)
	return m
}

// Returns sets the declared return type. A nil type declares a void method.
func (m *Method) Returns(t reflect.Type) *Method {
	m.returns = t
	return m
}

// Select sets a JMESPath expression applied to structured responses before
// they are decoded into the return type.
func (m *Method) Select(expr string) *Method {
	m.selector = expr
	return m
}

// Name returns the name the method was registered under.
func (m *Method) Name() string { return m.name }

// Path returns the declared sub-path template.
func (m *Method) Path() string { return m.path }

// Verb returns the effective verb, GET when none was declared.
func (m *Method) Verb() Verb {
	if m.verb == "" {
		return VerbGet
	}
	return m.verb
}

// Parameters returns a copy of the declared parameter roles.
func (m *Method) Parameters() []Param {
	return append([]Param(nil), m.params...)
}

// ReturnType returns the declared return type, nil for void methods.
func (m *Method) ReturnType() reflect.Type { return m.returns }

// StaticHeaders returns a copy of the declared static headers.
func (m *Method) StaticHeaders() []HeaderField {
	return append([]HeaderField(nil), m.headers...)
}

func (m *Method) clone(name string) *Method {
	c := *m
	c.name = name
	c.headers = append([]HeaderField(nil), m.headers...)
	c.params = append([]Param(nil), m.params...)
	return &c
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Role classifies a call argument.
type Role int

const (
	RolePath Role = iota
	RoleHeader
	RoleQuery
	RoleBody
)

func (r Role) String() string {
	switch r {
	case RolePath:
		return "path"
	case RoleHeader:
		return "header"
	case RoleQuery:
		return "query"
	case RoleBody:
		return "body"
	default:
		return "unknown"
	}
}

// Param declares the role and name of a positional argument.
type Param struct {
	Role Role
	Name string
}

// PathParam declares an argument substituted for the :name placeholder.
func PathParam(name string) Param { return Param{Role: RolePath, Name: name} }

// HeaderParam declares an argument sent as the named header.
func HeaderParam(name string) Param { return Param{Role: RoleHeader, Name: name} }

// QueryParam declares an argument sent as the named query parameter. An
// empty name is allowed for struct values, whose fields become parameters.
func QueryParam(name string) Param { return Param{Role: RoleQuery, Name: name} }

// BodyParam declares the argument sent as the request body.
func BodyParam() Param { return Param{Role: RoleBody} }

// Arg is a call-time argument value tagged with its role.
type Arg struct {
	Role  Role
	Name  string
	Value any
}

// Path tags a path-parameter argument.
func Path(name string, v any) Arg { return Arg{Role: RolePath, Name: name, Value: v} }

// Header tags a per-invocation header argument.
func Header(name string, v any) Arg { return Arg{Role: RoleHeader, Name: name, Value: v} }

// Query tags a query argument.
func Query(name string, v any) Arg { return Arg{Role: RoleQuery, Name: name, Value: v} }

// Body tags the body argument.
func Body(v any) Arg { return Arg{Role: RoleBody, Value: v} }
