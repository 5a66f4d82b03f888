// Package config provides loading and parsing of nodeid.yaml configuration files.
// A configuration covers identifier build options, claims signing settings and
// the optional Redis row store and etcd rebuild trigger.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/nodeid"
	"github.com/zero-day-ai/nodeid/claims"
	"github.com/zero-day-ai/nodeid/codec"
)

// File names searched by Load when given a directory, in order.
var FileNames = []string{"nodeid.yaml", "nodeid.yml"}

// Config represents a nodeid.yaml configuration file.
type Config struct {
	// Identifier build options
	NodeID *NodeIDConfig `yaml:"node_id,omitempty"`

	// Claims token signing
	JWT *JWTConfig `yaml:"jwt,omitempty"`

	// Redis row store
	Redis *RedisConfig `yaml:"redis,omitempty"`

	// etcd rebuild trigger
	Etcd *EtcdConfig `yaml:"etcd,omitempty"`
}

// NodeIDConfig controls how identifiers are built.
type NodeIDConfig struct {
	// LegacyTableNameIdentifiers derives identifiers from pluralized table
	// names. Changing it invalidates every identifier already issued.
	LegacyTableNameIdentifiers bool `yaml:"legacy_table_name_identifiers,omitempty"`

	// Codec names the identifier codec ("base64JSON" or "pipeString").
	// Default: base64JSON
	Codec string `yaml:"codec,omitempty"`

	// Filter is an optional CEL expression selecting eligible sources.
	Filter string `yaml:"filter,omitempty"`

	// Strict fails the build on any registration diagnostic.
	Strict bool `yaml:"strict,omitempty"`
}

// GetCodec returns the configured codec name or the default value.
func (n *NodeIDConfig) GetCodec() string {
	if n == nil || n.Codec == "" {
		return codec.Base64JSONName
	}
	return n.Codec
}

// JWTConfig defines the claims token settings.
type JWTConfig struct {
	// Secret is the signing secret or PEM private key. Prefer SecretEnv.
	Secret string `yaml:"secret,omitempty"`

	// SecretEnv names an environment variable holding the secret.
	SecretEnv string `yaml:"secret_env,omitempty"`

	// Type selects the claims shape by "namespace.name". When empty the shape
	// carrying the jwt behavior is used.
	Type string `yaml:"type,omitempty"`

	// Algorithm is the JWS algorithm.
	// Default: HS256
	Algorithm string `yaml:"algorithm,omitempty"`

	Audience []string `yaml:"audience,omitempty"`
	Issuer   string   `yaml:"issuer,omitempty"`
	Subject  string   `yaml:"subject,omitempty"`

	// ExpiresIn is a Go duration string (e.g., "1h").
	// Default: 24h
	ExpiresIn string `yaml:"expires_in,omitempty"`

	// NotBefore is a Go duration string added to the signing time.
	NotBefore string `yaml:"not_before,omitempty"`

	KeyID         string `yaml:"key_id,omitempty"`
	GenerateJWTID bool   `yaml:"generate_jwt_id,omitempty"`
}

// GetSecret returns the inline secret, falling back to SecretEnv.
func (j *JWTConfig) GetSecret() []byte {
	if j == nil {
		return nil
	}
	if j.Secret != "" {
		return []byte(j.Secret)
	}
	if j.SecretEnv != "" {
		if v := os.Getenv(j.SecretEnv); v != "" {
			return []byte(v)
		}
	}
	return nil
}

// GetAlgorithm returns the configured algorithm or the default value.
func (j *JWTConfig) GetAlgorithm() string {
	if j == nil || j.Algorithm == "" {
		return claims.DefaultAlgorithm
	}
	return j.Algorithm
}

// GetExpiresIn parses the expiry duration.
// Returns the default value if not set or invalid.
func (j *JWTConfig) GetExpiresIn() time.Duration {
	if j == nil || j.ExpiresIn == "" {
		return claims.DefaultExpiresIn
	}
	d, err := time.ParseDuration(j.ExpiresIn)
	if err != nil || d <= 0 {
		return claims.DefaultExpiresIn
	}
	return d
}

// GetNotBefore parses the not-before offset. Returns 0 if not set or invalid.
func (j *JWTConfig) GetNotBefore() time.Duration {
	if j == nil || j.NotBefore == "" {
		return 0
	}
	d, err := time.ParseDuration(j.NotBefore)
	if err != nil {
		return 0
	}
	return d
}

// SignOptions converts the configuration into claims signing options.
func (j *JWTConfig) SignOptions() claims.SignOptions {
	if j == nil {
		return claims.SignOptions{Algorithm: claims.DefaultAlgorithm, ExpiresIn: claims.DefaultExpiresIn}
	}
	return claims.SignOptions{
		Algorithm:     j.GetAlgorithm(),
		Audience:      j.Audience,
		Issuer:        j.Issuer,
		Subject:       j.Subject,
		ExpiresIn:     j.GetExpiresIn(),
		NotBefore:     j.GetNotBefore(),
		KeyID:         j.KeyID,
		GenerateJWTID: j.GenerateJWTID,
	}
}

// RedisConfig defines the Redis row store connection.
type RedisConfig struct {
	// URL is the Redis connection string.
	// Default: redis://localhost:6379
	URL string `yaml:"url,omitempty"`

	// Prefix is prepended to every row key.
	// Default: nodeid
	Prefix string `yaml:"prefix,omitempty"`
}

// GetURL returns the Redis URL or the default value.
func (r *RedisConfig) GetURL() string {
	if r == nil || r.URL == "" {
		return "redis://localhost:6379"
	}
	return r.URL
}

// GetPrefix returns the key prefix or the default value.
func (r *RedisConfig) GetPrefix() string {
	if r == nil || r.Prefix == "" {
		return "nodeid"
	}
	return r.Prefix
}

// EtcdConfig defines the etcd key watched to trigger rebuilds.
type EtcdConfig struct {
	Endpoints []string `yaml:"endpoints,omitempty"`

	// Key is watched as a prefix.
	// Default: /nodeid/schema
	Key string `yaml:"key,omitempty"`

	// DialTimeout is a Go duration string.
	// Default: 5s
	DialTimeout string `yaml:"dial_timeout,omitempty"`

	TLS *TLSConfig `yaml:"tls,omitempty"`
}

// TLSConfig holds client certificate paths for etcd.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
	CAFile   string `yaml:"ca_file,omitempty"`
}

// GetKey returns the watched key or the default value.
func (e *EtcdConfig) GetKey() string {
	if e == nil || e.Key == "" {
		return "/nodeid/schema"
	}
	return e.Key
}

// GetDialTimeout parses the dial timeout.
// Returns the default value if not set or invalid.
func (e *EtcdConfig) GetDialTimeout() time.Duration {
	if e == nil || e.DialTimeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(e.DialTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// BuildOptions converts the node_id section into nodeid.Build options.
func (c *Config) BuildOptions() []nodeid.Option {
	if c == nil || c.NodeID == nil {
		return nil
	}
	opts := []nodeid.Option{
		nodeid.WithLegacyTableNameIdentifiers(c.NodeID.LegacyTableNameIdentifiers),
		nodeid.WithCodecName(c.NodeID.GetCodec()),
		nodeid.WithStrict(c.NodeID.Strict),
	}
	if c.NodeID.Filter != "" {
		opts = append(opts, nodeid.WithFilter(c.NodeID.Filter))
	}
	return opts
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.NodeID != nil {
		if _, err := codec.DefaultSet().Get(c.NodeID.GetCodec()); err != nil {
			errs = append(errs, fmt.Errorf("node_id.codec: %w", err))
		}
	}

	if c.JWT != nil {
		if jwt.GetSigningMethod(c.JWT.GetAlgorithm()) == nil || c.JWT.GetAlgorithm() == "none" {
			errs = append(errs, fmt.Errorf("jwt.algorithm: unsupported algorithm %q", c.JWT.Algorithm))
		}
		if c.JWT.ExpiresIn != "" {
			if d, err := time.ParseDuration(c.JWT.ExpiresIn); err != nil || d <= 0 {
				errs = append(errs, fmt.Errorf("jwt.expires_in: invalid duration %q", c.JWT.ExpiresIn))
			}
		}
		if c.JWT.NotBefore != "" {
			if _, err := time.ParseDuration(c.JWT.NotBefore); err != nil {
				errs = append(errs, fmt.Errorf("jwt.not_before: invalid duration %q", c.JWT.NotBefore))
			}
		}
	}

	if c.Etcd != nil {
		if len(c.Etcd.Endpoints) == 0 {
			errs = append(errs, errors.New("etcd.endpoints: at least one endpoint is required"))
		}
		if c.Etcd.DialTimeout != "" {
			if _, err := time.ParseDuration(c.Etcd.DialTimeout); err != nil {
				errs = append(errs, fmt.Errorf("etcd.dial_timeout: invalid duration %q", c.Etcd.DialTimeout))
			}
		}
		if t := c.Etcd.TLS; t != nil && t.Enabled && (t.CertFile == "" || t.KeyFile == "" || t.CAFile == "") {
			errs = append(errs, errors.New("etcd.tls: cert_file, key_file and ca_file are required when enabled"))
		}
	}

	if len(errs) > 0 {
		return nodeid.NewConfigurationError("config.Validate",
			fmt.Errorf("%w: %w", nodeid.ErrInvalidConfig, errors.Join(errs...)))
	}
	return nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config file: %v", nodeid.ErrInvalidConfig, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Load reads and parses a nodeid.yaml file from the given path.
// If the path is a directory, it looks for nodeid.yaml or nodeid.yml in that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range FileNames {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("no nodeid.yaml or nodeid.yml found in %s", path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// LoadFromDir searches for nodeid.yaml starting from the given directory
// and walking up to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		config, err := Load(absDir)
		if err == nil {
			return config, nil
		}
		if errors.Is(err, nodeid.ErrInvalidConfig) {
			return nil, err
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			return nil, fmt.Errorf("no nodeid.yaml found in %s or parent directories", dir)
		}
		absDir = parent
	}
}
