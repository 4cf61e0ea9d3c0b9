package restwire

import (
	"fmt"
	"reflect"
)

// EndpointID identifies an endpoint type. Directories are keyed by it.
type EndpointID string

// IDOf returns the identifier of the endpoint interface T.
func IDOf[T any]() EndpointID {
	return idOfType(TypeOf[T]())
}

func idOfType(t reflect.Type) EndpointID {
	if t.Name() != "" && t.PkgPath() != "" {
		return EndpointID(t.PkgPath() + "." + t.Name())
	}
	return EndpointID(t.String())
}

// Stage names a step of the invocation pipeline.
type Stage int

const (
	StageValidate Stage = iota
	StageBuildURI
	StageBuildHeaders
	StageBuildBody
	StageResolveClient
	StageExecute
	StageParseResponse
)

func (s Stage) String() string {
	switch s {
	case StageValidate:
		return "validate"
	case StageBuildURI:
		return "build_uri"
	case StageBuildHeaders:
		return "build_headers"
	case StageBuildBody:
		return "build_body"
	case StageResolveClient:
		return "resolve_client"
	case StageExecute:
		return "execute"
	case StageParseResponse:
		return "parse_response"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// kind is the classification applied to unclassified failures of the stage.
func (s Stage) kind() ErrorKind {
	switch s {
	case StageValidate:
		return KindEndpointValidation
	case StageBuildURI, StageBuildBody:
		return KindRequestBuild
	case StageBuildHeaders:
		return KindHeaderBuild
	case StageResolveClient, StageExecute:
		return KindExecution
	case StageParseResponse:
		return KindResponseParse
	default:
		return KindInvocation
	}
}

// Invocation is the per-call configuration: the endpoint definition, the
// invoked method descriptor and the tagged argument values. It belongs to a
// single call.
type Invocation struct {
	Definition *Definition
	Method     *Method
	Args       []Arg
}

// Endpoint returns the identifier of the invoked endpoint type.
func (inv *Invocation) Endpoint() EndpointID {
	return inv.Definition.id
}

// args returns the arguments of role r in call order.
func (inv *Invocation) args(r Role) []Arg {
	var out []Arg
	for _, a := range inv.Args {
		if a.Role == r {
			out = append(out, a)
		}
	}
	return out
}

// tagArgs pairs positional values with the method's declared roles.
func tagArgs(m *Method, values []any) ([]Arg, error) {
	if len(values) != len(m.params) {
		return nil, Errorf(KindRequestBuild, "%s takes %d arguments, got %d", m.name, len(m.params), len(values))
	}
	args := make([]Arg, len(values))
	for i, v := range values {
		p := m.params[i]
		args[i] = Arg{Role: p.Role, Name: p.Name, Value: v}
	}
	return args, nil
}
