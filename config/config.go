// Package config loads the optional devboot.yaml file.
//
// Every field has a default, so running without a file reproduces the
// project's standard development setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/recoveryguard/devboot"
)

// Config mirrors devboot.yaml.
type Config struct {
	// Python is the interpreter that runs manage.py.
	Python string `yaml:"python"`

	// Manage is the path to manage.py, relative to WorkDir.
	Manage string `yaml:"manage"`

	// WorkDir is the directory commands run in, relative to the config file.
	WorkDir string `yaml:"workdir"`

	// Apps lists the apps to generate migrations for, in order.
	Apps []string `yaml:"apps"`

	// EnvFile is the dotenv file the project's settings load, relative to WorkDir.
	// Only this one path is read. Django's load_dotenv() instead searches upward
	// from the settings module's directory, so a .env kept in a parent directory
	// must be named here explicitly (e.g. "../.env").
	EnvFile string `yaml:"env_file"`

	// Server configures runserver.
	Server Server `yaml:"server"`
}

// Server configures the development server.
type Server struct {
	// AddrPort is passed to runserver as "[addr:]port". Empty uses Django's default.
	AddrPort string `yaml:"addrport"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	apps := devboot.DefaultApps()
	names := make([]string, len(apps))
	for i, app := range apps {
		names[i] = string(app)
	}

	return Config{
		Python:  "python",
		Manage:  "manage.py",
		WorkDir: ".",
		Apps:    names,
		EnvFile: ".env",
	}
}

// Load reads path over the defaults and validates the result.
// Fields missing from the file keep their default values. A relative workdir
// is resolved against the directory containing the file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	if !filepath.IsAbs(cfg.WorkDir) {
		cfg.WorkDir = filepath.Join(filepath.Dir(path), cfg.WorkDir)
	}

	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every field can be used to build a command.
func (c Config) Validate() error {
	if c.Python == "" {
		return fmt.Errorf("python cannot be empty")
	}
	if c.Manage == "" {
		return fmt.Errorf("manage cannot be empty")
	}
	if len(c.Apps) == 0 {
		return devboot.ErrEmptyAppList
	}
	for _, app := range c.Apps {
		if err := devboot.ValidateAppName(devboot.AppName(app)); err != nil {
			return err
		}
	}
	return nil
}

// AppNames returns Apps as typed app names, preserving order.
func (c Config) AppNames() []devboot.AppName {
	apps := make([]devboot.AppName, len(c.Apps))
	for i, app := range c.Apps {
		apps[i] = devboot.AppName(app)
	}
	return apps
}

// EnvPath returns the dotenv file path, or "" when none is configured.
func (c Config) EnvPath() string {
	if c.EnvFile == "" {
		return ""
	}
	if filepath.IsAbs(c.EnvFile) {
		return c.EnvFile
	}
	return filepath.Join(c.WorkDir, c.EnvFile)
}
