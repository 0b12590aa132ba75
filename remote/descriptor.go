package remote

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/jonwraymond/toolcall/toolerr"
)

// TransportKind is the descriptor tag.
type TransportKind string

// Transport kinds.
const (
	TransportStdio TransportKind = "stdio"
	TransportHTTP  TransportKind = "http"
)

// Descriptor identifies a remote tool server. The only implementations are
// StdioDescriptor and HTTPDescriptor.
type Descriptor interface {
	// ServerName returns the human-readable server name.
	ServerName() string

	// Transport returns the descriptor tag.
	Transport() TransportKind

	// Key returns a stable identity derived from every field.
	Key() string

	sealed()
}

// StdioDescriptor launches a server as a child process.
type StdioDescriptor struct {
	Name    string            `json:"name"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ServerName implements Descriptor.
func (d StdioDescriptor) ServerName() string { return d.Name }

// Transport implements Descriptor.
func (StdioDescriptor) Transport() TransportKind { return TransportStdio }

// Key implements Descriptor.
func (d StdioDescriptor) Key() string { return descriptorKey(TransportStdio, d) }

func (StdioDescriptor) sealed() {}

// HTTPDescriptor connects to a streamable HTTP endpoint.
type HTTPDescriptor struct {
	Name    string            `json:"name"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Auth    Auth              `json:"auth"`
}

// ServerName implements Descriptor.
func (d HTTPDescriptor) ServerName() string { return d.Name }

// Transport implements Descriptor.
func (HTTPDescriptor) Transport() TransportKind { return TransportHTTP }

// Key implements Descriptor.
func (d HTTPDescriptor) Key() string { return descriptorKey(TransportHTTP, d) }

func (HTTPDescriptor) sealed() {}

// AuthMode selects how HTTP requests authenticate.
type AuthMode string

// Auth modes. OAuth2 carries an already obtained access token and is sent
// like a bearer token.
const (
	AuthNone   AuthMode = "none"
	AuthBearer AuthMode = "bearer"
	AuthOAuth2 AuthMode = "oauth2"
	AuthBasic  AuthMode = "basic"
	AuthCustom AuthMode = "custom"
)

// Auth is the authentication of an HTTPDescriptor.
type Auth struct {
	Mode     AuthMode          `json:"mode,omitempty" yaml:"mode,omitempty"`
	Token    string            `json:"token,omitempty" yaml:"token,omitempty"`
	Username string            `json:"username,omitempty" yaml:"username,omitempty"`
	Password string            `json:"password,omitempty" yaml:"password,omitempty"`
	Headers  map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

func descriptorKey(kind TransportKind, v any) string {
	// encoding/json sorts map keys, so equal values encode identically.
	data, err := json.Marshal(v)
	if err != nil {
		return string(kind)
	}
	return fmt.Sprintf("%s:%016x", kind, xxhash.Sum64(data))
}

// Validate checks d against the host capabilities. Stdio descriptors are
// rejected before any other check when subprocesses are not allowed.
func Validate(d Descriptor, caps Capabilities) error {
	switch d := d.(type) {
	case StdioDescriptor:
		if !caps.Subprocess {
			return toolerr.New(toolerr.KindTransportUnsupported,
				"stdio transport is not available in this environment (server %q)", d.Name)
		}
		if strings.TrimSpace(d.Command) == "" {
			return toolerr.New(toolerr.KindTransportUnsupported, "stdio server %q: command is required", d.Name)
		}
		return nil
	case HTTPDescriptor:
		u, err := url.Parse(d.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return toolerr.New(toolerr.KindTransportUnsupported, "http server %q: invalid url %q", d.Name, d.URL)
		}
		_, err = d.RequestHeaders()
		return err
	case nil:
		return toolerr.New(toolerr.KindTransportUnsupported, "descriptor is required")
	default:
		return toolerr.New(toolerr.KindTransportUnsupported, "Unsupported MCP connection type: %T", d)
	}
}

// RequestHeaders returns the headers sent with every request: the extra
// headers, then the authentication headers. A mode that needs a credential
// but has none is a setup error; it never falls back to unauthenticated.
func (d HTTPDescriptor) RequestHeaders() (map[string]string, error) {
	out := make(map[string]string, len(d.Headers)+1)
	for k, v := range d.Headers {
		out[k] = v
	}

	switch d.Auth.Mode {
	case "", AuthNone:
	case AuthBearer, AuthOAuth2:
		if d.Auth.Token == "" {
			return nil, missingCredential(d, "token")
		}
		out["Authorization"] = "Bearer " + d.Auth.Token
	case AuthBasic:
		if d.Auth.Username == "" {
			return nil, missingCredential(d, "username")
		}
		out["Authorization"] = "Basic " + basicCredentials(d.Auth.Username, d.Auth.Password)
	case AuthCustom:
		if len(d.Auth.Headers) == 0 {
			return nil, missingCredential(d, "headers")
		}
		for k, v := range d.Auth.Headers {
			out[k] = v
		}
	default:
		return nil, toolerr.New(toolerr.KindTransportUnsupported, "http server %q: unknown auth mode %q", d.Name, d.Auth.Mode)
	}
	return out, nil
}

func missingCredential(d HTTPDescriptor, what string) error {
	return toolerr.New(toolerr.KindTransportUnsupported, "http server %q: %s auth requires %s", d.Name, d.Auth.Mode, what)
}
