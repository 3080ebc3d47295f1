package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

const (
	// default name of database file in home directory
	DefaultDBName = ".dumpbuf"

	RemoteS3   = "s3"
	RemoteSFTP = "sftp"
)

type Config struct {
	DBPath  string       `yaml:"db_path" mapstructure:"db_path"`
	LogDir  string       `yaml:"log_dir" mapstructure:"log_dir"`
	Shell   string       `yaml:"shell" mapstructure:"shell"`
	Verbose bool         `yaml:"verbose" mapstructure:"verbose"`
	Remote  RemoteConfig `yaml:"remote" mapstructure:"remote"`
	// used by import and diff from url, defaults to HTTP_PROXY env variable
	HTTPProxy string `yaml:"http_proxy" mapstructure:"http_proxy"`
}

// RemoteConfig is where `backup push` / `backup pull` copy the database
type RemoteConfig struct {
	// s3 or sftp
	Kind string `yaml:"kind" mapstructure:"kind"`
	// object name in the bucket or path on the server
	Path string     `yaml:"path" mapstructure:"path"`
	S3   S3Config   `yaml:"s3" mapstructure:"s3"`
	SFTP SFTPConfig `yaml:"sftp" mapstructure:"sftp"`
}

type S3Config struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Bucket   string `yaml:"bucket" mapstructure:"bucket"`
	Access   string `yaml:"access" mapstructure:"access"`
	Secret   string `yaml:"secret" mapstructure:"secret"`
	Region   string `yaml:"region" mapstructure:"region"`
	// use http instead of https, for local minio
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
}

type SFTPConfig struct {
	User       string `yaml:"user" mapstructure:"user"`
	Addr       string `yaml:"addr" mapstructure:"addr"`
	KeyPath    string `yaml:"key_path" mapstructure:"key_path"`
	Passphrase string `yaml:"passphrase" mapstructure:"passphrase"`
}

var envVarRe = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)

func expandEnv(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "$")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// expandHome replaces leading ~ with home directory
func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func DefaultConfig() *Config {
	home := homeDir()
	return &Config{
		DBPath: filepath.Join(home, DefaultDBName),
		LogDir: filepath.Join(home, ".cache", "dumpbuf", "logs"),
		Remote: RemoteConfig{
			Path: "dumpbuf/db.txt",
		},
	}
}

func configDirs() []string {
	var res []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		res = append(res, filepath.Join(xdg, "dumpbuf"))
	}
	return append(res, filepath.Join(homeDir(), ".config", "dumpbuf"))
}

// setDefaults registers every key so that AutomaticEnv can override
// values that are not in the config file
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("db_path", cfg.DBPath)
	v.SetDefault("log_dir", cfg.LogDir)
	v.SetDefault("shell", cfg.Shell)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("http_proxy", cfg.HTTPProxy)
	v.SetDefault("remote.kind", cfg.Remote.Kind)
	v.SetDefault("remote.path", cfg.Remote.Path)
	v.SetDefault("remote.s3.endpoint", "")
	v.SetDefault("remote.s3.bucket", "")
	v.SetDefault("remote.s3.access", "")
	v.SetDefault("remote.s3.secret", "")
	v.SetDefault("remote.s3.region", "")
	v.SetDefault("remote.s3.insecure", false)
	v.SetDefault("remote.sftp.user", "")
	v.SetDefault("remote.sftp.addr", "")
	v.SetDefault("remote.sftp.key_path", "")
	v.SetDefault("remote.sftp.passphrase", "")
}

// Load reads config.yaml from standard locations (or configFile if given)
// and applies DUMPBUF_* environment variables on top.
// Missing config file is not an error.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range configDirs() {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("DUMPBUF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.LogDir = expandHome(cfg.LogDir)
	s3 := &cfg.Remote.S3
	s3.Access = expandEnv(s3.Access)
	s3.Secret = expandEnv(s3.Secret)
	sftp := &cfg.Remote.SFTP
	sftp.KeyPath = expandHome(expandEnv(sftp.KeyPath))
	sftp.Passphrase = expandEnv(sftp.Passphrase)

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	switch c.Remote.Kind {
	case "", RemoteS3, RemoteSFTP:
	default:
		return fmt.Errorf("unknown remote.kind '%s', must be '%s' or '%s'", c.Remote.Kind, RemoteS3, RemoteSFTP)
	}
	return nil
}

// Redacted returns a copy of config with secrets hidden, for logging
func (c *Config) Redacted() *Config {
	res := *c
	hide := func(s *string) {
		if *s != "" {
			*s = "***"
		}
	}
	hide(&res.Remote.S3.Access)
	hide(&res.Remote.S3.Secret)
	hide(&res.Remote.SFTP.Passphrase)
	return &res
}
