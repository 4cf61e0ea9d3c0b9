// Package gen renders typed proxies for restwire endpoint interfaces.
//
// For every file declaring endpoint interfaces it emits a sibling
// <file>_restwire.go holding, per interface, an unexported proxy struct that
// forwards each method to restwire.Proxy.Call, and a Define<Interface>
// function that declares the interface and registers its methods.
package gen

import (
	"bytes"
	"context"
	"fmt"
	"go/format"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/broady/restwire"
	"github.com/broady/restwire/internal/directive"
)

// Header starts every generated file.
const Header = "// Code generated by restwire gen. DO NOT EDIT."

// OutputName returns the name of the file generated for the source file path.
func OutputName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".go") + "_restwire.go"
}

// Run renders every file of r and writes it to sink under its OutputName.
// It returns the names written.
func Run(ctx context.Context, r *directive.Result, sink Sink) ([]string, error) {
	var written []string
	for _, f := range r.Files {
		src, err := Source(r.PackageName, f)
		if err != nil {
			return written, fmt.Errorf("%s: %w", filepath.Base(f.Path), err)
		}
		name := OutputName(f.Path)
		if err := sink.WriteFile(ctx, name, src); err != nil {
			return written, fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, name)
	}
	return written, nil
}

// Source renders the gofmt-ed proxy file for the endpoints of f.
func Source(pkgName string, f directive.File) ([]byte, error) {
	data := fileData{Package: pkgName}
	for _, imp := range f.Imports {
		spec := strconv.Quote(imp.Path)
		if imp.Name != "" {
			spec = imp.Name + " " + spec
		}
		data.Imports = append(data.Imports, spec)
	}

	for _, ep := range f.Endpoints {
		e, err := endpointData(ep)
		if err != nil {
			return nil, err
		}
		data.Endpoints = append(data.Endpoints, e)
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated code: %w\n%s", err, buf.Bytes())
	}
	return out, nil
}

type fileData struct {
	Package   string
	Imports   []string
	Endpoints []endpoint
}

type endpoint struct {
	Interface string
	Proxy     string
	Recv      string
	Endpoint  string // composite literal of the restwire.Endpoint
	Options   []string
	Methods   []method
}

type method struct {
	Name      string
	Signature string // parameter list without parentheses
	Result    string
	Args      string // call arguments after the method name
	Register  string // method descriptor expression
}

func endpointData(ep directive.Endpoint) (endpoint, error) {
	parsed, err := restwire.ParseEndpoint(ep.URL)
	if err != nil {
		return endpoint{}, fmt.Errorf("%s: endpoint URL: %w", ep.Pos, err)
	}
	if _, err := restwire.Validate(restwire.EndpointID(ep.Interface), parsed); err != nil {
		return endpoint{}, fmt.Errorf("%s: %w", ep.Pos, err)
	}

	e := endpoint{
		Interface: ep.Interface,
		Proxy:     lowerFirst(ep.Interface) + "Proxy",
		Recv:      receiverName(ep),
		Endpoint:  endpointLiteral(parsed),
	}
	if ep.Builder == "restful" {
		e.Options = append(e.Options, "restwire.WithBuilder(restwire.RESTful)")
	}
	if ep.Headers == "skip" {
		e.Options = append(e.Options, "restwire.WithHeaderPolicy(restwire.SkipHeaders)")
	}

	for _, m := range ep.Methods {
		for _, p := range m.Params {
			if p.Role == "path" && !stringKinded(p.Type) {
				return endpoint{}, fmt.Errorf("%s: method %s: path parameter %s must be string-kinded, got %s", m.Pos, m.Name, p.Name, p.Type)
			}
		}
		e.Methods = append(e.Methods, methodData(m))
	}
	return e, nil
}

// nonString lists predeclared types whose kind is not string.
var nonString = map[string]bool{
	"bool": true, "byte": true, "rune": true, "uintptr": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"float32": true, "float64": true, "complex64": true, "complex128": true,
	"any": true, "error": true,
}

// stringKinded reports whether a path parameter of type typ can be
// substituted into a URI. Named types are accepted on trust; the pipeline
// still rejects a non-string kind at call time.
func stringKinded(typ string) bool {
	if typ == "string" {
		return true
	}
	if nonString[typ] {
		return false
	}
	pkg, name, qualified := strings.Cut(typ, ".")
	if qualified {
		return token.IsIdentifier(pkg) && token.IsIdentifier(name)
	}
	return token.IsIdentifier(typ)
}

func methodData(m directive.Method) method {
	params := []string{m.Context + " " + m.CtxType}
	args := []string{m.Context, strconv.Quote(m.Name)}
	roles := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		params = append(params, p.Name+" "+p.Type)
		args = append(args, p.Name)
		roles = append(roles, paramExpr(p))
	}

	var reg strings.Builder
	switch m.Verb {
	case "":
		fmt.Fprintf(&reg, "restwire.Request(%s)", strconv.Quote(m.Path))
	default:
		fmt.Fprintf(&reg, "restwire.%s(%s)", m.Verb, strconv.Quote(m.Path))
	}
	for _, h := range m.Headers {
		fmt.Fprintf(&reg, ".\n\t\t\tHeader(%s, %s)", strconv.Quote(h.Name), strconv.Quote(h.Value))
	}
	if len(roles) > 0 {
		fmt.Fprintf(&reg, ".\n\t\t\tParams(%s)", strings.Join(roles, ", "))
	}
	if m.Result != "" {
		fmt.Fprintf(&reg, ".\n\t\t\tReturns(restwire.TypeOf[%s]())", m.Result)
	}

	return method{
		Name:      m.Name,
		Signature: strings.Join(params, ", "),
		Result:    m.Result,
		Args:      strings.Join(args, ", "),
		Register:  reg.String(),
	}
}

func paramExpr(p directive.Param) string {
	switch p.Role {
	case "path":
		return "restwire.PathParam(" + strconv.Quote(p.Wire) + ")"
	case "header":
		return "restwire.HeaderParam(" + strconv.Quote(p.Wire) + ")"
	case "body":
		return "restwire.BodyParam()"
	default:
		return "restwire.QueryParam(" + strconv.Quote(p.Wire) + ")"
	}
}

func endpointLiteral(ep *restwire.Endpoint) string {
	fields := []string{
		"Scheme: " + strconv.Quote(ep.Scheme),
		"Host: " + strconv.Quote(ep.Host),
	}
	if ep.Port != "" {
		fields = append(fields, "Port: "+strconv.Quote(ep.Port))
	}
	fields = append(fields, "BasePath: "+strconv.Quote(ep.BasePath))
	return "&restwire.Endpoint{" + strings.Join(fields, ", ") + "}"
}

// receiverName picks a receiver that no method parameter shadows.
func receiverName(ep directive.Endpoint) string {
	used := make(map[string]bool)
	for _, m := range ep.Methods {
		used[m.Context] = true
		for _, p := range m.Params {
			used[p.Name] = true
		}
	}
	name := "x"
	for i := 0; used[name]; i++ {
		name = "x" + strconv.Itoa(i)
	}
	return name
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}

var fileTemplate = template.Must(template.New("file").Parse(Header + `

package {{.Package}}

import (
{{- range .Imports}}
	{{.}}
{{- end}}

	"github.com/broady/restwire"
)
{{range .Endpoints}}{{$ep := .}}
// {{.Proxy}} implements {{.Interface}} on top of a restwire.Proxy.
type {{.Proxy}} struct {
	p *restwire.Proxy
}
{{range .Methods}}
func ({{$ep.Recv}} *{{$ep.Proxy}}) {{.Name}}({{.Signature}}) {{if .Result}}({{.Result}}, error){{else}}error{{end}} {
{{- if .Result}}
	return restwire.Result[{{.Result}}]({{$ep.Recv}}.p.Call({{.Args}}))
{{- else}}
	if _, err := {{$ep.Recv}}.p.Call({{.Args}}); err != nil {
		return err
	}
	return nil
{{- end}}
}
{{end}}
// Define{{.Interface}} declares {{.Interface}} on reg and registers its methods.
func Define{{.Interface}}(reg *restwire.Registry, opts ...restwire.Option) *restwire.Definition {
{{- if .Options}}
	opts = append([]restwire.Option{
{{- range .Options}}
		{{.}},
{{- end}}
	}, opts...)
{{- end}}
	return restwire.Define(reg, {{.Endpoint}}, func(p *restwire.Proxy) {{.Interface}} {
		return &{{.Proxy}}{p: p}
	}, opts...){{range .Methods}}.
		Register({{printf "%q" .Name}}, {{.Register}}){{end}}
}
{{end}}`))
