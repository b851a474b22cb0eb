// Package config loads the keyhandler service configuration
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/keyhandler/gpg"
	"github.com/effective-security/keyhandler/sandbox"
	"github.com/effective-security/keyhandler/validate"
	"github.com/effective-security/x/fileutil"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultGPGBinary       = "/usr/bin/gpg"
	DefaultListenAddr      = ":8000"
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxRequestBytes = 64 * 1024
	DefaultLogLevel        = "INFO"
)

// Configuration of the service
type Configuration struct {
	// TmpFolder is the existing directory ephemeral keyrings are created in
	TmpFolder string `json:"tmp_folder" yaml:"tmp_folder"`
	// GPGBinaryPath is the gpg executable used by the gnupg engine
	GPGBinaryPath string `json:"gpg_binary_path" yaml:"gpg_binary_path"`
	// Engine is gnupg or native
	Engine string `json:"engine" yaml:"engine"`
	// PasswordHash is the argon2 reference hash,
	// it can be a literal value, or start with file:// or env://
	PasswordHash string `json:"password_hash" yaml:"password_hash"`
	// TokenLength is the length of ephemeral keyring names
	TokenLength int `json:"token_length" yaml:"token_length"`
	// FailedAuthDelay is waited before a wrong password is reported
	FailedAuthDelay time.Duration `json:"failed_auth_delay" yaml:"failed_auth_delay"`
	// Validation specifies the input policy
	Validation validate.Policy `json:"validation" yaml:"validation"`
	// Server specifies the HTTP listener
	Server Server `json:"server" yaml:"server"`
	// LogLevel is the global log level
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Server configuration
type Server struct {
	ListenAddr      string        `json:"listen_addr" yaml:"listen_addr"`
	RequestTimeout  time.Duration `json:"request_timeout" yaml:"request_timeout"`
	MaxRequestBytes int64         `json:"max_request_bytes" yaml:"max_request_bytes"`
}

// Default returns configuration with the default values
func Default() *Configuration {
	return &Configuration{
		GPGBinaryPath: DefaultGPGBinary,
		Engine:        gpg.GnuPGEngineName,
		TokenLength:   sandbox.MinTokenLength,
		Validation:    validate.DefaultPolicy,
		Server: Server{
			ListenAddr:      DefaultListenAddr,
			RequestTimeout:  DefaultRequestTimeout,
			MaxRequestBytes: DefaultMaxRequestBytes,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load returns the configuration from the YAML file,
// omitted values are set to defaults
func Load(file string) (*Configuration, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to load config file")
	}

	cfg := Default()
	if err = yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.WithMessagef(err, "unable to unmarshal YAML: %q", file)
	}

	if cfg.PasswordHash != "" {
		hash, err := resolveSchema(cfg.PasswordHash)
		if err != nil {
			return nil, errors.WithMessagef(err, "unable to resolve password_hash")
		}
		cfg.PasswordHash = strings.TrimSpace(hash)
	}

	if err = cfg.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "invalid configuration: %q", file)
	}
	return cfg, nil
}

// Schemas of secret values
const (
	SchemaFile = "file://"
	SchemaEnv  = "env://"
)

// resolveSchema returns the content of a file:// value, the environment
// variable of an env:// value, or the literal value
func resolveSchema(value string) (string, error) {
	switch {
	case strings.HasPrefix(value, SchemaEnv):
		name := strings.TrimPrefix(value, SchemaEnv)
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", errors.Errorf("environment variable %q is not set", name)
		}
		return v, nil
	case strings.HasPrefix(value, SchemaFile):
		name := strings.TrimPrefix(value, SchemaFile)
		if err := fileutil.FileExists(name); err != nil {
			return "", errors.WithStack(err)
		}
		b, err := os.ReadFile(name)
		if err != nil {
			return "", errors.WithStack(err)
		}
		return string(b), nil
	}
	return value, nil
}

// Validate returns error if the configuration is not usable
func (c *Configuration) Validate() error {
	if c.TmpFolder == "" {
		return errors.New("tmp_folder is required")
	}
	if c.PasswordHash == "" {
		return errors.New("password_hash is required")
	}
	if c.TokenLength < sandbox.MinTokenLength {
		return errors.Errorf("token_length must be at least %d", sandbox.MinTokenLength)
	}
	switch c.Engine {
	case gpg.GnuPGEngineName:
		if c.GPGBinaryPath == "" {
			return errors.New("gpg_binary_path is required for gnupg engine")
		}
	case gpg.NativeEngineName:
	default:
		return errors.Errorf("unsupported engine: %q", c.Engine)
	}
	if c.FailedAuthDelay < 0 {
		return errors.New("failed_auth_delay must not be negative")
	}
	if c.Server.RequestTimeout < 0 || c.Server.MaxRequestBytes < 0 {
		return errors.New("server limits must not be negative")
	}
	return nil
}
