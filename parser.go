package restwire

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"

	"github.com/jmespath/go-jmespath"
)

// ReturnCategory groups declared return types by parsing strategy.
type ReturnCategory int

const (
	CategoryVoid ReturnCategory = iota
	CategoryText
	CategoryStructured
)

func (c ReturnCategory) String() string {
	switch c {
	case CategoryVoid:
		return "void"
	case CategoryText:
		return "text"
	case CategoryStructured:
		return "structured"
	default:
		return "unknown"
	}
}

var bytesType = reflect.TypeOf([]byte(nil))

func categorize(t reflect.Type) ReturnCategory {
	switch {
	case t == nil:
		return CategoryVoid
	case t.Kind() == reflect.String, t == bytesType:
		return CategoryText
	default:
		return CategoryStructured
	}
}

// ResponseParser converts a received response into the declared return type.
// The caller drains and closes the body after Parse returns.
type ResponseParser interface {
	Parse(resp *http.Response, inv *Invocation) (any, error)
}

// parsers maps each return category to its parser. It is never modified.
var parsers = map[ReturnCategory]ResponseParser{
	CategoryVoid:       voidParser{},
	CategoryText:       textParser{},
	CategoryStructured: structuredParser{},
}

// parseResponse selects the parser for the method's declared return type.
func parseResponse(resp *http.Response, inv *Invocation) (any, error) {
	return parsers[categorize(inv.Method.returns)].Parse(resp, inv)
}

type voidParser struct{}

func (voidParser) Parse(resp *http.Response, _ *Invocation) (any, error) {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return nil, Wrap(KindResponseParse, err, "drain body")
	}
	return nil, nil
}

type textParser struct{}

func (textParser) Parse(resp *http.Response, inv *Invocation) (any, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Wrap(KindResponseParse, err, "read body")
	}
	t := inv.Method.returns
	if t == bytesType {
		return data, nil
	}
	return reflect.ValueOf(string(data)).Convert(t).Interface(), nil
}

type structuredParser struct{}

func (structuredParser) Parse(resp *http.Response, inv *Invocation) (any, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Wrap(KindResponseParse, err, "read body")
	}
	codec := inv.Definition.codecs.forContentType(resp.Header.Get("Content-Type"))

	if expr := inv.Method.selector; expr != "" {
		data, codec, err = selectDocument(data, codec, expr)
		if err != nil {
			return nil, err
		}
	}

	t := inv.Method.returns
	target := t
	if t.Kind() == reflect.Pointer {
		target = t.Elem()
	}
	ptr := reflect.New(target)
	if err := codec.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, Wrap(KindResponseParse, err, "decode "+codec.ContentType()+" into "+t.String())
	}
	if t.Kind() == reflect.Pointer {
		return ptr.Interface(), nil
	}
	return ptr.Elem().Interface(), nil
}

// selectDocument applies a JMESPath expression to the decoded document and
// re-encodes the result as JSON for the final decode.
func selectDocument(data []byte, codec Codec, expr string) ([]byte, Codec, error) {
	jp, err := jmespath.Compile(expr)
	if err != nil {
		return nil, nil, Wrap(KindResponseParse, err, "compile selector "+expr)
	}
	var doc any
	if err := codec.Unmarshal(data, &doc); err != nil {
		return nil, nil, Wrap(KindResponseParse, err, "decode "+codec.ContentType())
	}
	selected, err := jp.Search(doc)
	if err != nil {
		return nil, nil, Wrap(KindResponseParse, err, "apply selector "+expr)
	}
	out, err := json.Marshal(selected)
	if err != nil {
		return nil, nil, Wrap(KindResponseParse, err, "encode selection")
	}
	return out, JSONCodec{}, nil
}
