package restwire

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultClientKey names the default client in Config.Clients.
const DefaultClientKey = "default"

// Config is the file form of a registry configuration.
//
//	clients:
//	  default:
//	    timeout: 10s
//	  feeds:
//	    timeout: 2s
//	    max_idle_conns_per_host: 8
//	endpoints:
//	  feeds:
//	    endpoint: {scheme: http, host: localhost, port: "8080", path: /api}
//	    builder: restful
//	    methods:
//	      Feed:
//	        verb: GET
//	        path: /:user/feed
//	        params: [{role: path, name: user}]
//	        returns: json
type Config struct {
	Clients   map[string]ClientConfig   `yaml:"clients"`
	Endpoints map[string]EndpointConfig `yaml:"endpoints"`
}

// EndpointConfig declares an endpoint without a Go interface.
type EndpointConfig struct {
	Endpoint *Endpoint               `yaml:"endpoint" validate:"-"`
	Builder  string                  `yaml:"builder" validate:"omitempty,oneof=basic restful"`
	Headers  string                  `yaml:"headers" validate:"omitempty,oneof=inherit skip"`
	Methods  map[string]MethodConfig `yaml:"methods" validate:"dive"`
}

// MethodConfig declares one method of a config endpoint.
type MethodConfig struct {
	Verb    string        `yaml:"verb" validate:"omitempty,oneof=GET POST PUT DELETE get post put delete"`
	Path    string        `yaml:"path"`
	Headers []HeaderEntry `yaml:"headers" validate:"dive"`
	Params  []ParamEntry  `yaml:"params" validate:"dive"`
	Returns string        `yaml:"returns" validate:"omitempty,oneof=void text json"`
	Select  string        `yaml:"select"`
}

// HeaderEntry is a static header in a MethodConfig.
type HeaderEntry struct {
	Name  string `yaml:"name" validate:"required"`
	Value string `yaml:"value"`
}

// ParamEntry declares a positional parameter in a MethodConfig.
type ParamEntry struct {
	Role string `yaml:"role" validate:"required,oneof=path header query body"`
	Name string `yaml:"name" validate:"required_unless=Role body"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for name, ec := range cfg.Endpoints {
		if err := validate.Struct(ec); err != nil {
			return nil, fmt.Errorf("endpoint %s: %w", name, validationError(err))
		}
	}
	return &cfg, nil
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// method converts the entry into a method descriptor.
func (mc MethodConfig) method() *Method {
	m := Request(mc.Path)
	if mc.Verb != "" {
		m.verb = Verb(strings.ToUpper(mc.Verb))
	}
	for _, h := range mc.Headers {
		m.Header(h.Name, h.Value)
	}
	params := make([]Param, 0, len(mc.Params))
	for _, p := range mc.Params {
		params = append(params, Param{Role: parseRole(p.Role), Name: p.Name})
	}
	m.Params(params...)
	switch mc.Returns {
	case "text":
		m.Returns(reflect.TypeOf(""))
	case "json":
		m.Returns(anyType)
	}
	if mc.Select != "" {
		m.Select(mc.Select)
	}
	return m
}

func parseRole(s string) Role {
	switch s {
	case "header":
		return RoleHeader
	case "query":
		return RoleQuery
	case "body":
		return RoleBody
	default:
		return RolePath
	}
}

// ApplyConfig declares the configured endpoints and binds the configured
// clients. Client entries are matched to definitions by ID or short name;
// unmatched names are used as IDs verbatim.
func (r *Registry) ApplyConfig(cfg *Config) error {
	var errs []error

	for name, ec := range cfg.Endpoints {
		builder, err := ParseBuilderKind(ec.Builder)
		if err != nil {
			errs = append(errs, fmt.Errorf("endpoint %s: %w", name, err))
			continue
		}
		policy := InheritHeaders
		if ec.Headers == "skip" {
			policy = SkipHeaders
		}
		def := Declare(r, EndpointID(name), ec.Endpoint, WithBuilder(builder), WithHeaderPolicy(policy))
		for mname, mc := range ec.Methods {
			def.Register(mname, mc.method())
		}
	}

	for name, cc := range cfg.Clients {
		c, err := NewClient(cc)
		if err != nil {
			errs = append(errs, fmt.Errorf("client %s: %w", name, err))
			continue
		}
		if name == DefaultClientKey {
			r.clients.SetDefault(c)
			continue
		}
		id := EndpointID(name)
		if def, ok := r.lookupName(name); ok {
			id = def.id
		}
		r.clients.Post(id, c)
	}
	return errors.Join(errs...)
}
