package restwire

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultPort is used when an Endpoint declares no port.
const DefaultPort = 80

// Endpoint is the declared metadata of a remote service surface.
// Port is kept in its declared textual form; it is parsed during validation.
type Endpoint struct {
	Scheme   string `yaml:"scheme" validate:"required,oneof=http https"`
	Host     string `yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port     string `yaml:"port,omitempty" validate:"omitempty,numeric"`
	BasePath string `yaml:"path" validate:"required,startswith=/"`
}

// ParseEndpoint splits a base URL such as "http://host:8080/api" into an
// Endpoint declaration. The result is not validated.
func ParseEndpoint(raw string) (*Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return &Endpoint{
		Scheme:   u.Scheme,
		Host:     u.Hostname(),
		Port:     u.Port(),
		BasePath: path,
	}, nil
}

// EndpointDescriptor is the validated, immutable form of an Endpoint.
type EndpointDescriptor struct {
	Scheme   string
	Host     string
	Port     int
	BasePath string
}

// BaseURI returns a fresh copy of the canonical base URI.
func (d *EndpointDescriptor) BaseURI() *url.URL {
	return &url.URL{
		Scheme: d.Scheme,
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   d.BasePath,
	}
}

func (d *EndpointDescriptor) String() string {
	return d.BaseURI().String()
}

// Validate checks the declared metadata of the endpoint type id and returns
// its descriptor. A nil declaration fails with missing_endpoint_metadata;
// any malformed field fails with endpoint_validation.
func Validate(id EndpointID, decl *Endpoint) (*EndpointDescriptor, error) {
	if decl == nil {
		return nil, Errorf(KindMissingEndpointMetadata, "%s declares no endpoint", id)
	}
	// Schemes are case-insensitive; decl itself is left untouched.
	norm := *decl
	norm.Scheme = strings.ToLower(norm.Scheme)
	decl = &norm
	if err := validate.Struct(decl); err != nil {
		return nil, validationError(err).WithDetail("endpoint", string(id))
	}

	port := DefaultPort
	if decl.Port != "" {
		p, err := strconv.Atoi(decl.Port)
		if err != nil {
			return nil, Wrap(KindEndpointValidation, err, "invalid port").WithDetail("endpoint", string(id))
		}
		if p < 1 || p > 65535 {
			return nil, Errorf(KindEndpointValidation, "port %d out of range", p).WithDetail("endpoint", string(id))
		}
		port = p
	}

	d := &EndpointDescriptor{
		Scheme:   decl.Scheme,
		Host:     decl.Host,
		Port:     port,
		BasePath: strings.TrimSuffix(decl.BasePath, "/"),
	}

	// Round-trip through net/url to reject components it cannot represent.
	if _, err := url.Parse(d.String()); err != nil {
		return nil, Wrap(KindEndpointValidation, err, fmt.Sprintf("invalid base URI for %s", id))
	}
	return d, nil
}
