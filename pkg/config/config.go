package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct loaded from YAML.
type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		DBPath  string `yaml:"db_path"`
		TLS     struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Security struct {
		CORS struct {
			AllowedOrigins []string `yaml:"allowed_origins"`
		} `yaml:"cors"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Auth struct {
		IssuerURL   string   `yaml:"issuer_url"`
		JWKSURL     string   `yaml:"jwks_url"`
		TokenURL    string   `yaml:"token_url"`
		RegisterURL string   `yaml:"register_url"`
		ClientID    string   `yaml:"client_id"`
		RoleClaim   string   `yaml:"role_claim"`
		RolePrefix  string   `yaml:"role_prefix"`
		Timeout     Duration `yaml:"timeout"`
	} `yaml:"auth"`
	Notify struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
		QueueSize     int    `yaml:"queue_size"`
	} `yaml:"notify"`
	Media struct {
		MaxUploadSize SizeBytes `yaml:"max_upload_size"`
	} `yaml:"media"`
	Retention struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
		Period  string `yaml:"period"`
		DryRun  bool   `yaml:"dry_run"`
	} `yaml:"retention"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Addr combines address and port into a listen address.
func (c *Config) Addr() string {
	host := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Load reads and parses the YAML config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &c, nil
}
