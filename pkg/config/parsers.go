package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// EffectiveConfigResult is the merged view of flags, environment and config
// file. Source records which layer supplied the listen address, for the
// startup banner.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string
}

// ParseCommandFlags parses the server command line. It returns the raw flag
// values plus a set of the flags the user explicitly provided, so explicit
// flags can win over env and file values.
func ParseCommandFlags() (addr, db, cfgPath string, set map[string]bool) {
	addrFlag := flag.String("addr", ":8080", "listen address")
	dbFlag := flag.String("db", "./data", "pebble database path")
	cfgFlag := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return *addrFlag, *dbFlag, *cfgFlag, set
}

// ResolveConfigPath picks the config file path: an explicit flag wins, then
// LIVECHAT_CONFIG, then ./livechat.yaml if it exists.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet && flagVal != "" {
		return flagVal
	}
	if p := os.Getenv("LIVECHAT_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("livechat.yaml"); err == nil {
		return "livechat.yaml"
	}
	return flagVal
}

// applyEnv overlays LIVECHAT_* environment variables onto cfg and reports
// whether any were used.
func applyEnv(cfg *Config) bool {
	used := false
	setStr := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
			used = true
		}
	}
	setStr(&cfg.Server.Address, "LIVECHAT_SERVER_ADDRESS")
	if v := os.Getenv("LIVECHAT_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
			used = true
		}
	}
	setStr(&cfg.Server.DBPath, "LIVECHAT_DB_PATH")
	setStr(&cfg.Auth.IssuerURL, "LIVECHAT_AUTH_ISSUER_URL")
	setStr(&cfg.Auth.JWKSURL, "LIVECHAT_AUTH_JWKS_URL")
	setStr(&cfg.Auth.TokenURL, "LIVECHAT_AUTH_TOKEN_URL")
	setStr(&cfg.Auth.RegisterURL, "LIVECHAT_AUTH_REGISTER_URL")
	setStr(&cfg.Auth.ClientID, "LIVECHAT_AUTH_CLIENT_ID")
	setStr(&cfg.Auth.RoleClaim, "LIVECHAT_AUTH_ROLE_CLAIM")
	setStr(&cfg.Auth.RolePrefix, "LIVECHAT_AUTH_ROLE_PREFIX")
	setStr(&cfg.Notify.URL, "LIVECHAT_NOTIFY_URL")
	setStr(&cfg.Notify.SubjectPrefix, "LIVECHAT_NOTIFY_SUBJECT_PREFIX")
	setStr(&cfg.Logging.Level, "LIVECHAT_LOG_LEVEL")
	return used
}

// LoadEffective loads the config file (when present), overlays environment
// variables and returns the effective configuration. A missing file is not an
// error; env and defaults still apply.
func LoadEffective(cfgPath string) (EffectiveConfigResult, error) {
	cfg := &Config{}
	source := "defaults"
	if cfgPath != "" {
		if c, err := Load(cfgPath); err == nil {
			cfg = c
			source = "config"
		} else if !os.IsNotExist(err) {
			return EffectiveConfigResult{}, err
		}
	}
	if applyEnv(cfg) {
		source = "env"
	}
	if cfg.Auth.RolePrefix == "" {
		cfg.Auth.RolePrefix = "ROLE_"
	}
	if cfg.Auth.RoleClaim == "" {
		cfg.Auth.RoleClaim = "groups"
	}
	if cfg.Notify.SubjectPrefix == "" {
		cfg.Notify.SubjectPrefix = "notify"
	}
	if cfg.Notify.QueueSize == 0 {
		cfg.Notify.QueueSize = 256
	}
	if cfg.Media.MaxUploadSize == 0 {
		cfg.Media.MaxUploadSize = 4 << 20
	}
	dbPath := cfg.Server.DBPath
	if dbPath == "" {
		dbPath = "./data"
	}
	return EffectiveConfigResult{Config: cfg, Addr: cfg.Addr(), DBPath: dbPath, Source: source}, nil
}
