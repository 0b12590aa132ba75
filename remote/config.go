package remote

import (
	"strings"

	"github.com/jonwraymond/toolcall/toolerr"
)

// DescriptorConfig is the serialized form of a Descriptor, discriminated by
// Type.
type DescriptorConfig struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// stdio
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// http
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Auth    *Auth             `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// Build converts c into a Descriptor. fallbackName is used when c has no
// name, typically the key the server is configured under.
func (c DescriptorConfig) Build(fallbackName string) (Descriptor, error) {
	name := c.Name
	if name == "" {
		name = fallbackName
	}

	switch TransportKind(strings.ToLower(strings.TrimSpace(c.Type))) {
	case TransportStdio:
		return StdioDescriptor{
			Name:    name,
			Command: c.Command,
			Args:    append([]string(nil), c.Args...),
			Env:     cloneMap(c.Env),
		}, nil
	case TransportHTTP:
		d := HTTPDescriptor{
			Name:    name,
			URL:     c.URL,
			Headers: cloneMap(c.Headers),
			Auth:    Auth{Mode: AuthNone},
		}
		if c.Auth != nil {
			d.Auth = *c.Auth
			d.Auth.Headers = cloneMap(c.Auth.Headers)
			if d.Auth.Mode == "" {
				d.Auth.Mode = AuthNone
			}
		}
		return d, nil
	default:
		return nil, toolerr.New(toolerr.KindTransportUnsupported, "Unsupported MCP connection type: %s", c.Type)
	}
}

// ConfigOf returns the serialized form of d.
func ConfigOf(d Descriptor) DescriptorConfig {
	switch d := d.(type) {
	case StdioDescriptor:
		return DescriptorConfig{Type: string(TransportStdio), Name: d.Name, Command: d.Command, Args: d.Args, Env: d.Env}
	case HTTPDescriptor:
		auth := d.Auth
		return DescriptorConfig{Type: string(TransportHTTP), Name: d.Name, URL: d.URL, Headers: d.Headers, Auth: &auth}
	default:
		return DescriptorConfig{}
	}
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
