package server

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GameConf holds the process options. Values come from the YAML options
// file, then LITTLEMUD_* environment variables, then command-line flags.
type GameConf struct {
	// --- Listener ---
	Port           int    `yaml:"port"`
	Host           string `yaml:"host"`
	MaxConnections int    `yaml:"max_connections"` // 0 = unlimited
	Encoding       string `yaml:"encoding"`        // IANA name of the wire encoding

	// --- Persistence ---
	DumpFile         string `yaml:"dump_file"`
	AutosaveInterval int    `yaml:"autosave_interval"` // minutes, 0 = disabled
	BackupDir        string `yaml:"backup_dir"`

	// --- Logging ---
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // text or json
	LogCommands bool   `yaml:"log_commands"`

	// --- Sessions ---
	AutoLogin       string `yaml:"auto_login"` // uid to log every connection in as
	LoginBannerFile string `yaml:"login_banner_file"`

	// --- HTTP (metrics and websocket) ---
	HTTPAddr string `yaml:"http_addr"` // empty = disabled

	// Path is the file the options were loaded from.
	Path string `yaml:"-"`
}

// DefaultGameConf returns the built-in option defaults.
func DefaultGameConf() GameConf {
	return GameConf{
		Port:             4444,
		Encoding:         "utf-8",
		DumpFile:         "world.db",
		AutosaveInterval: 30,
		BackupDir:        "backups",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// LoadGameConf reads a YAML options file over the defaults. A missing
// file is not an error when path is empty.
func LoadGameConf(path string) (GameConf, error) {
	conf := DefaultGameConf()
	if path == "" {
		return conf, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return conf, fmt.Errorf("reading options %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return conf, fmt.Errorf("parsing options %s: %w", path, err)
	}
	conf.Path = path
	return conf, conf.Validate()
}

// Validate rejects option values the server cannot run with.
func (c *GameConf) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("max_connections must not be negative"))
	}
	if c.AutosaveInterval < 0 {
		errs = append(errs, fmt.Errorf("autosave_interval must not be negative"))
	}
	if _, err := lookupEncoding(c.Encoding); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ApplyEnv overrides options from LITTLEMUD_* environment variables.
// Malformed numbers are reported and leave the option unchanged.
func (c *GameConf) ApplyEnv() error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv("LITTLEMUD_" + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := os.LookupEnv("LITTLEMUD_" + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("LITTLEMUD_%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := os.LookupEnv("LITTLEMUD_" + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("LITTLEMUD_%s: %w", name, err))
				return
			}
			*dst = b
		}
	}

	num("PORT", &c.Port)
	str("HOST", &c.Host)
	num("MAX_CONNECTIONS", &c.MaxConnections)
	str("ENCODING", &c.Encoding)
	str("DUMP_FILE", &c.DumpFile)
	num("AUTOSAVE_INTERVAL", &c.AutosaveInterval)
	str("BACKUP_DIR", &c.BackupDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	flag("LOG_COMMANDS", &c.LogCommands)
	str("AUTO_LOGIN", &c.AutoLogin)
	str("LOGIN_BANNER_FILE", &c.LoginBannerFile)
	str("HTTP_ADDR", &c.HTTPAddr)
	return errors.Join(errs...)
}

// ListenAddr is the host:port of the line listener.
func (c GameConf) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Autosave returns the autosave period, or zero when disabled.
func (c GameConf) Autosave() time.Duration {
	return time.Duration(c.AutosaveInterval) * time.Minute
}
