// Package call implements the restwire call command.
package call

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/broady/restwire"
	"github.com/broady/restwire/middleware"
)

const defaultTimeout = 30 * time.Second

type Cmd struct {
	Config  string        `help:"YAML configuration file." short:"c" required:"" type:"existingfile"`
	Target  string        `arg:"" help:"Method to invoke, as endpoint.method."`
	Args    []string      `arg:"" optional:"" help:"Arguments as name=value. The body argument is named body and holds raw JSON."`
	Timeout time.Duration `help:"Overall call timeout." default:"30s"`
	Verbose bool          `help:"Log each request to stderr." short:"v"`

	Out io.Writer `kong:"-"`
}

func (c *Cmd) Run() error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}

	endpoint, method, ok := cutLast(c.Target, ".")
	if !ok || endpoint == "" || method == "" {
		return fmt.Errorf("target %q must be endpoint.method", c.Target)
	}

	cfg, err := restwire.LoadConfig(c.Config)
	if err != nil {
		return err
	}

	clients := restwire.NewClientDirectory(nil)
	defer clients.Close()
	reg := restwire.NewRegistry().
		WithEndpoints(restwire.NewEndpointDirectory()).
		WithClients(clients).
		WithUnaryInterceptor(middleware.RequestIDInterceptor())
	if c.Verbose {
		reg = reg.WithUnaryInterceptor(middleware.LoggingInterceptor(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}
	if err := reg.ApplyConfig(cfg); err != nil {
		return err
	}

	def, ok := reg.Definition(restwire.EndpointID(endpoint))
	if !ok {
		return fmt.Errorf("endpoint %q is not configured", endpoint)
	}
	m, ok := def.Method(method)
	if !ok {
		return fmt.Errorf("endpoint %s has no method %q", endpoint, method)
	}
	values, err := positional(m.Parameters(), c.Args)
	if err != nil {
		return err
	}

	v, err := reg.Provide(def.ID())
	if err != nil {
		return err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	result, err := v.(*restwire.Proxy).Call(ctx, method, values...)
	if err != nil {
		return err
	}
	return writeResult(out, result)
}

// positional orders name=value arguments by the method's declared parameters.
func positional(params []restwire.Param, args []string) ([]any, error) {
	named := make(map[string]string, len(args))
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("argument %q must be name=value", a)
		}
		named[name] = value
	}

	values := make([]any, 0, len(params))
	for _, p := range params {
		name := p.Name
		if p.Role == restwire.RoleBody {
			name = "body"
		}
		value, ok := named[name]
		if !ok {
			return nil, fmt.Errorf("missing %s argument %q", p.Role, name)
		}
		delete(named, name)
		if p.Role == restwire.RoleBody {
			if !json.Valid([]byte(value)) {
				return nil, fmt.Errorf("body argument is not valid JSON")
			}
			values = append(values, json.RawMessage(value))
			continue
		}
		values = append(values, value)
	}
	for name := range named {
		return nil, fmt.Errorf("unknown argument %q", name)
	}
	return values, nil
}

func writeResult(w io.Writer, result any) error {
	switch v := result.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case []byte:
		_, err := w.Write(v)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
