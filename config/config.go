// Package config loads the YAML configuration of a toolcall host.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/toolcall/logging"
	"github.com/jonwraymond/toolcall/remote"
)

// Driver names.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Defaults.
const (
	DefaultHTTPAddr       = ":8080"
	DefaultLogLevel       = "info"
	DefaultRedisPrefix    = "toolcall:call:"
	DefaultLifecycleTTL   = 24 * time.Hour
	DefaultStoragePrefix  = "files"
	DefaultMaxConcurrency = 8
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the root of a toolcall config file.
type Config struct {
	LogLevel       string        `yaml:"log_level"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
	MaxConcurrency int           `yaml:"max_concurrency"`

	Host      HostConfig                         `yaml:"host"`
	Servers   map[string]remote.DescriptorConfig `yaml:"servers"`
	Storage   StorageConfig                      `yaml:"storage"`
	Lifecycle LifecycleConfig                    `yaml:"lifecycle"`
	HTTP      HTTPConfig                         `yaml:"http"`
}

// HostConfig describes what the host process may do.
type HostConfig struct {
	AllowSubprocess bool `yaml:"allow_subprocess"`
}

// StorageConfig selects the artifact store.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Prefix string `yaml:"prefix"`
}

// LifecycleConfig selects where call phases and plugin state are kept.
type LifecycleConfig struct {
	Driver   string        `yaml:"driver"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	BaseURL string `yaml:"base_url"`
}

// Default returns a config that runs entirely in memory.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path. An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes, defaults and validates a config document. Unknown keys
// are rejected.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	c := &Config{}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = remote.DefaultCallTimeout
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = DefaultStoragePrefix
	}
	if c.Lifecycle.Driver == "" {
		c.Lifecycle.Driver = DriverMemory
	}
	if c.Lifecycle.Prefix == "" {
		c.Lifecycle.Prefix = DefaultRedisPrefix
	}
	if c.Lifecycle.TTL == 0 {
		c.Lifecycle.TTL = DefaultLifecycleTTL
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
}

// Validate checks c. Server descriptors are built to surface malformed
// entries at load time.
func (c *Config) Validate() error {
	var problems []string
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.CallTimeout < 0 {
		problems = append(problems, "call_timeout must not be negative")
	}
	if c.MaxConcurrency < 0 {
		problems = append(problems, "max_concurrency must not be negative")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.Path == "" {
			problems = append(problems, "storage.path is required for sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage.driver %q", c.Storage.Driver))
	}

	switch c.Lifecycle.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Lifecycle.Addr == "" {
			problems = append(problems, "lifecycle.addr is required for redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown lifecycle.driver %q", c.Lifecycle.Driver))
	}

	for _, name := range c.ServerNames() {
		sc := c.Servers[name]
		if _, err := sc.Build(name); err != nil {
			problems = append(problems, fmt.Sprintf("servers.%s: %v", name, err))
			continue
		}
		switch strings.ToLower(sc.Type) {
		case string(remote.TransportStdio):
			if sc.Command == "" {
				problems = append(problems, fmt.Sprintf("servers.%s: command is required", name))
			}
		case string(remote.TransportHTTP):
			if sc.URL == "" {
				problems = append(problems, fmt.Sprintf("servers.%s: url is required", name))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// ServerNames returns the configured namespaces in sorted order.
func (c *Config) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors builds every configured server, keyed by namespace.
func (c *Config) Descriptors() (map[string]remote.Descriptor, error) {
	out := make(map[string]remote.Descriptor, len(c.Servers))
	for name, sc := range c.Servers {
		d, err := sc.Build(name)
		if err != nil {
			return nil, fmt.Errorf("servers.%s: %w", name, err)
		}
		out[name] = d
	}
	return out, nil
}

// Capabilities returns the host capabilities for the remote client.
func (c *Config) Capabilities() remote.Capabilities {
	return remote.Capabilities{Subprocess: c.Host.AllowSubprocess}
}
