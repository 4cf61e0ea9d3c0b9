// Package directive parses restwire directives from Go source files.
//
// Directives are line comments on an interface and on its methods:
//
//	//restwire:endpoint http://api.example.com:8080/v1
//	//restwire:builder restful
//	//restwire:headers skip
//	type Feeds interface {
//		//restwire:get /:user/feed
//		//restwire:header Accept-Language: en
//		//restwire:param token header=Authorization
//		Feed(ctx context.Context, user, token string) (*Feed, error)
//	}
//
// An interface carrying an endpoint directive is an endpoint interface. Each
// of its methods needs exactly one verb directive (get, post, put, delete or
// request). Parameters without a param directive are path parameters when
// the path has a matching :name placeholder and query parameters otherwise.
package directive

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"
)

const prefix = "//restwire:"

// Endpoint is an interface annotated with //restwire:endpoint.
type Endpoint struct {
	Interface string
	URL       string
	Builder   string // "", "basic" or "restful"
	Headers   string // "", "inherit" or "skip"
	Methods   []Method
	Pos       token.Position
}

// Method is an interface method annotated with a verb directive.
type Method struct {
	Name    string
	Verb    string // GET, POST, PUT, DELETE, or empty for //restwire:request
	Path    string
	Headers []Header
	Params  []Param
	Result  string // result type expression, empty for error-only methods
	Context string // name of the context parameter
	CtxType string // context parameter type as written, e.g. context.Context
	Pos     token.Position
}

// Header is a static header from //restwire:header.
type Header struct {
	Name  string
	Value string
}

// Param is a non-context parameter of a method.
type Param struct {
	Name string // Go parameter name
	Type string // type expression
	Role string // path, header, query or body
	Wire string // placeholder, header or query name; empty for body
}

// Import is an import needed by the signatures of a file's endpoints.
type Import struct {
	Name string // explicit name, empty when the default name is used
	Path string
}

// File holds the endpoints declared in one source file.
type File struct {
	Path      string
	Imports   []Import
	Endpoints []Endpoint
}

// Result contains all endpoints found in a package.
type Result struct {
	// PackageName is the Go package name.
	PackageName string

	// PackagePath is the import path of the parsed package.
	PackagePath string

	// Dir is the directory containing the package.
	Dir string

	// Files lists the files that declare at least one endpoint.
	Files []File
}

// Parse scans a Go package for restwire directives.
//
// The pattern follows go command semantics:
//   - "." for current directory
//   - Import path like "github.com/foo/bar"
//   - Absolute or relative directory path
//
// Returns an error if:
//   - The package cannot be loaded
//   - A directive is unknown or malformed
//   - A method of an endpoint interface has no verb directive
//   - A method signature cannot be proxied
func Parse(pattern string) (*Result, error) {
	return ParseDir(pattern, "")
}

// ParseDir is like Parse but allows specifying a working directory.
// If dir is empty, the current directory is used.
func ParseDir(pattern, dir string) (*Result, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax,
		Dir:  dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}

	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching %q", pattern)
	}

	if len(pkgs) > 1 {
		return nil, fmt.Errorf("multiple packages found matching %q; specify a single package", pattern)
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors[0])
	}

	result := &Result{
		PackageName: pkg.Name,
		PackagePath: pkg.PkgPath,
	}

	if len(pkg.GoFiles) > 0 {
		result.Dir = filepath.Dir(pkg.GoFiles[0])
	}

	fset := token.NewFileSet()
	for _, filename := range pkg.GoFiles {
		f, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
		file, err := parseFile(fset, f)
		if err != nil {
			return nil, err
		}
		if len(file.Endpoints) > 0 {
			result.Files = append(result.Files, *file)
		}
	}

	return result, nil
}

// parseFile extracts the endpoints declared in a single file.
func parseFile(fset *token.FileSet, f *ast.File) (*File, error) {
	file := &File{Path: fset.Position(f.Package).Filename}
	p := &fileParser{fset: fset, imports: fileImports(f), used: make(map[string]bool)}

	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			if err := p.rejectStray(decl); err != nil {
				return nil, err
			}
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			ep, err := p.parseType(ts, doc)
			if err != nil {
				return nil, err
			}
			if ep != nil {
				file.Endpoints = append(file.Endpoints, *ep)
			}
		}
	}

	for _, imp := range f.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		name := defaultName(path)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		if !p.used[name] {
			continue
		}
		i := Import{Path: path}
		if imp.Name != nil {
			i.Name = imp.Name.Name
		}
		file.Imports = append(file.Imports, i)
	}
	return file, nil
}

type fileParser struct {
	fset    *token.FileSet
	imports map[string]string // local name -> import path
	used    map[string]bool   // local import names referenced by endpoint signatures
}

type directive struct {
	verb string
	arg  string
	pos  token.Position
}

func (p *fileParser) directives(cg *ast.CommentGroup) ([]directive, error) {
	if cg == nil {
		return nil, nil
	}
	var out []directive
	for _, c := range cg.List {
		if !strings.HasPrefix(c.Text, prefix) {
			continue
		}
		verb, arg, _ := strings.Cut(strings.TrimPrefix(c.Text, prefix), " ")
		d := directive{verb: verb, arg: strings.TrimSpace(arg), pos: p.fset.Position(c.Pos())}
		switch d.verb {
		case "endpoint", "builder", "headers", "get", "post", "put", "delete", "request", "header", "param":
		default:
			return nil, fmt.Errorf("%s: unknown directive %s%s", d.pos, prefix, d.verb)
		}
		out = append(out, d)
	}
	return out, nil
}

// rejectStray fails on directives attached to declarations that are not types.
func (p *fileParser) rejectStray(decl ast.Decl) error {
	var doc *ast.CommentGroup
	switch d := decl.(type) {
	case *ast.FuncDecl:
		doc = d.Doc
	case *ast.GenDecl:
		doc = d.Doc
	}
	ds, err := p.directives(doc)
	if err != nil {
		return err
	}
	if len(ds) > 0 {
		return fmt.Errorf("%s: %s%s directive must be attached to an interface", ds[0].pos, prefix, ds[0].verb)
	}
	return nil
}

func (p *fileParser) parseType(ts *ast.TypeSpec, doc *ast.CommentGroup) (*Endpoint, error) {
	ds, err := p.directives(doc)
	if err != nil {
		return nil, err
	}
	if len(ds) == 0 {
		return nil, nil
	}

	iface, ok := ts.Type.(*ast.InterfaceType)
	if !ok {
		return nil, fmt.Errorf("%s: %s%s directive must be attached to an interface, %s is not one", ds[0].pos, prefix, ds[0].verb, ts.Name.Name)
	}
	if ts.TypeParams != nil {
		return nil, fmt.Errorf("%s: generic interface %s cannot be an endpoint", p.fset.Position(ts.Pos()), ts.Name.Name)
	}

	ep := &Endpoint{Interface: ts.Name.Name, Pos: p.fset.Position(ts.Pos())}
	for _, d := range ds {
		switch d.verb {
		case "endpoint":
			if d.arg == "" {
				return nil, fmt.Errorf("%s: %sendpoint requires a base URL", d.pos, prefix)
			}
			ep.URL = d.arg
		case "builder":
			if d.arg != "basic" && d.arg != "restful" {
				return nil, fmt.Errorf("%s: builder must be basic or restful, got %q", d.pos, d.arg)
			}
			ep.Builder = d.arg
		case "headers":
			if d.arg != "inherit" && d.arg != "skip" {
				return nil, fmt.Errorf("%s: headers must be inherit or skip, got %q", d.pos, d.arg)
			}
			ep.Headers = d.arg
		default:
			return nil, fmt.Errorf("%s: %s%s directive belongs on a method of %s", d.pos, prefix, d.verb, ts.Name.Name)
		}
	}
	if ep.URL == "" {
		return nil, fmt.Errorf("%s: interface %s has directives but no %sendpoint", ep.Pos, ts.Name.Name, prefix)
	}

	for _, field := range iface.Methods.List {
		ft, ok := field.Type.(*ast.FuncType)
		if !ok || len(field.Names) == 0 {
			return nil, fmt.Errorf("%s: endpoint interface %s cannot embed %s", p.fset.Position(field.Pos()), ts.Name.Name, p.expr(field.Type))
		}
		m, err := p.parseMethod(field.Names[0].Name, ft, field.Doc)
		if err != nil {
			return nil, err
		}
		ep.Methods = append(ep.Methods, *m)
	}
	return ep, nil
}

var placeholder = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

func (p *fileParser) parseMethod(name string, ft *ast.FuncType, doc *ast.CommentGroup) (*Method, error) {
	pos := p.fset.Position(ft.Pos())
	ds, err := p.directives(doc)
	if err != nil {
		return nil, err
	}

	m := &Method{Name: name, Pos: pos}
	verbSet := false
	roles := make(map[string]Param)
	for _, d := range ds {
		switch d.verb {
		case "get", "post", "put", "delete", "request":
			if verbSet {
				return nil, fmt.Errorf("%s: method %s has more than one verb directive", d.pos, name)
			}
			verbSet = true
			if d.verb != "request" {
				m.Verb = strings.ToUpper(d.verb)
			}
			m.Path = d.arg
		case "header":
			hname, value, ok := strings.Cut(d.arg, ":")
			if !ok || strings.TrimSpace(hname) == "" {
				return nil, fmt.Errorf("%s: header directive must be \"Name: value\", got %q", d.pos, d.arg)
			}
			m.Headers = append(m.Headers, Header{Name: strings.TrimSpace(hname), Value: strings.TrimSpace(value)})
		case "param":
			param, err := parseParam(d)
			if err != nil {
				return nil, err
			}
			roles[param.Name] = param
		default:
			return nil, fmt.Errorf("%s: %s%s directive belongs on the interface, not method %s", d.pos, prefix, d.verb, name)
		}
	}
	if !verbSet {
		return nil, fmt.Errorf("%s: method %s has no %sget, post, put, delete or request directive", pos, name, prefix)
	}

	if err := p.parseParams(m, ft, roles); err != nil {
		return nil, err
	}
	if err := p.parseResults(m, ft); err != nil {
		return nil, err
	}
	return m, nil
}

// parseParam parses "<name> <role>[=<wire name>]".
func parseParam(d directive) (Param, error) {
	fields := strings.Fields(d.arg)
	if len(fields) != 2 {
		return Param{}, fmt.Errorf("%s: param directive must be \"<name> <role>[=<wire name>]\", got %q", d.pos, d.arg)
	}
	role, wire, _ := strings.Cut(fields[1], "=")
	switch role {
	case "path", "header", "query":
		if wire == "" {
			wire = fields[0]
		}
	case "body":
		if wire != "" {
			return Param{}, fmt.Errorf("%s: body parameter %s cannot be renamed", d.pos, fields[0])
		}
	default:
		return Param{}, fmt.Errorf("%s: unknown parameter role %q", d.pos, role)
	}
	return Param{Name: fields[0], Role: role, Wire: wire}, nil
}

func (p *fileParser) parseParams(m *Method, ft *ast.FuncType, roles map[string]Param) error {
	fields := ft.Params.List
	if len(fields) == 0 || !p.isContext(fields[0].Type) {
		return fmt.Errorf("%s: method %s must take a context.Context first", m.Pos, m.Name)
	}
	ctxNames := fields[0].Names
	m.Context = "ctx"
	m.CtxType = p.expr(fields[0].Type)
	if len(ctxNames) > 0 && ctxNames[0].Name != "_" {
		m.Context = ctxNames[0].Name
	}

	placeholders := make(map[string]bool)
	for _, match := range placeholder.FindAllStringSubmatch(m.Path, -1) {
		placeholders[match[1]] = true
	}

	// A context.Context field may name several parameters, e.g. (ctx, other context.Context).
	names := ctxNames
	if len(names) > 0 {
		names = names[1:]
	}
	rest := fields[1:]
	if len(names) > 0 {
		rest = append([]*ast.Field{{Names: names, Type: fields[0].Type}}, rest...)
	}

	bodies := 0
	for _, field := range rest {
		if _, ok := field.Type.(*ast.Ellipsis); ok {
			return fmt.Errorf("%s: method %s cannot be variadic", m.Pos, m.Name)
		}
		if len(field.Names) == 0 {
			return fmt.Errorf("%s: method %s must name its parameters", m.Pos, m.Name)
		}
		typ := p.expr(field.Type)
		for _, n := range field.Names {
			if n.Name == "_" {
				return fmt.Errorf("%s: method %s must name its parameters", m.Pos, m.Name)
			}
			param, ok := roles[n.Name]
			if ok {
				delete(roles, n.Name)
			} else if placeholders[n.Name] {
				param = Param{Name: n.Name, Role: "path", Wire: n.Name}
			} else {
				param = Param{Name: n.Name, Role: "query", Wire: n.Name}
			}
			if param.Role == "body" {
				bodies++
			}
			param.Type = typ
			m.Params = append(m.Params, param)
		}
	}
	for name := range roles {
		return fmt.Errorf("%s: param directive names unknown parameter %q of %s", m.Pos, name, m.Name)
	}
	if bodies > 1 {
		return fmt.Errorf("%s: method %s has %d body parameters", m.Pos, m.Name, bodies)
	}
	return nil
}

func (p *fileParser) parseResults(m *Method, ft *ast.FuncType) error {
	var results []ast.Expr
	if ft.Results != nil {
		for _, field := range ft.Results.List {
			n := len(field.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				results = append(results, field.Type)
			}
		}
	}
	switch {
	case len(results) == 1 && isError(results[0]):
	case len(results) == 2 && isError(results[1]):
		m.Result = p.expr(results[0])
	default:
		return fmt.Errorf("%s: method %s must return error or (T, error)", m.Pos, m.Name)
	}
	return nil
}

func isError(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == "error"
}

func (p *fileParser) isContext(e ast.Expr) bool {
	sel, ok := e.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Context" {
		return false
	}
	x, ok := sel.X.(*ast.Ident)
	return ok && p.imports[x.Name] == "context"
}

// expr prints a type expression and records the imports it refers to.
func (p *fileParser) expr(e ast.Expr) string {
	ast.Inspect(e, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if x, ok := sel.X.(*ast.Ident); ok {
				if _, imported := p.imports[x.Name]; imported {
					p.used[x.Name] = true
				}
			}
		}
		return true
	})
	var b strings.Builder
	printer.Fprint(&b, p.fset, e)
	return b.String()
}

func fileImports(f *ast.File) map[string]string {
	imports := make(map[string]string)
	for _, imp := range f.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		name := defaultName(path)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		imports[name] = path
	}
	return imports
}

// defaultName guesses the package name of an import path from its last
// element, ignoring a major version suffix.
func defaultName(path string) string {
	parts := strings.Split(path, "/")
	name := parts[len(parts)-1]
	if len(parts) > 1 && len(name) > 1 && name[0] == 'v' && strings.Trim(name[1:], "0123456789") == "" {
		name = parts[len(parts)-2]
	}
	return strings.TrimPrefix(name, "go-")
}
