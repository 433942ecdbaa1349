package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Reformat styles understood by the command builder.
const (
	StyleNone       = "none"
	StyleProgrammer = "programmer"
	StyleDebuggable = "debuggable"
)

// Configuration scopes. A project config lives next to the sources being
// decompiled; an application config is shared by every project of the user.
const (
	ScopeProject     = "project"
	ScopeApplication = "application"
)

// ProjectConfigName is the file name of a project-scoped config.
const ProjectConfigName = ".jdecomp.yaml"

// Config represents the complete jdecomp configuration
type Config struct {
	Decompiler DecompilerConfig `mapstructure:"decompiler" yaml:"decompiler"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
	Exclusions []ExclusionRule  `mapstructure:"exclusions" yaml:"exclusions"`
	// Scope is "project" or "application" and selects where Save writes.
	Scope   string        `mapstructure:"scope" yaml:"scope"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch"`
	Watch   WatchConfig   `mapstructure:"watch" yaml:"watch"`
	Pump    PumpConfig    `mapstructure:"pump" yaml:"pump"`
}

// DecompilerConfig describes the external decompiler and how it is invoked.
type DecompilerConfig struct {
	// Path is the decompiler executable. Paths containing spaces must be
	// quoted by the user since the command line goes through the shell.
	Path string `mapstructure:"path" yaml:"path"`
	// Properties are rendered in order between the executable and -p.
	Properties []Property `mapstructure:"properties" yaml:"properties"`
	// ReformatStyle is one of "none", "programmer", "debuggable" (default: "none")
	ReformatStyle string `mapstructure:"reformat_style" yaml:"reformat_style"`
	// TimeoutSeconds bounds a single decompiler run (0 = no limit, default: 120)
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// Property is one command-line option passed to the decompiler.
type Property struct {
	// Flag is the option name without the leading dash, e.g. "ff" or "pi".
	Flag string `mapstructure:"flag" yaml:"flag"`
	// Value is optional.
	Value string `mapstructure:"value" yaml:"value,omitempty"`
	// Attached renders the value glued to the flag (-pi99) instead of
	// separated by a space (-s java).
	Attached bool `mapstructure:"attached" yaml:"attached,omitempty"`
	// Disabled keeps the property in the config without rendering it.
	Disabled bool `mapstructure:"disabled" yaml:"disabled,omitempty"`
}

// OutputConfig controls where decompiled sources are written.
type OutputConfig struct {
	// Directory is the root of the output tree. Relative paths resolve
	// against the working directory; ~ expands to the home directory.
	Directory string `mapstructure:"directory" yaml:"directory"`
	// CreateIfMissing creates Directory when it does not exist (default: true)
	CreateIfMissing bool `mapstructure:"create_if_missing" yaml:"create_if_missing"`
	// Extension of generated files without the dot (default: "java")
	Extension string `mapstructure:"extension" yaml:"extension"`
}

// ExclusionRule skips classes whose package starts with Package.
type ExclusionRule struct {
	Package string `mapstructure:"package" yaml:"package"`
	// Applies toggles the rule without deleting it.
	Applies bool `mapstructure:"applies" yaml:"applies"`
	// Recursive extends the rule to subpackages. Only recursive rules exclude.
	Recursive bool `mapstructure:"recursive" yaml:"recursive"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Directory holds jdecomp.log. Empty means <config dir>/logs.
	Directory string `mapstructure:"directory" yaml:"directory,omitempty"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// BatchConfig controls multi-target runs.
type BatchConfig struct {
	// MaxParallel is the number of decompiler processes run at once (default: 4)
	MaxParallel int `mapstructure:"max_parallel" yaml:"max_parallel"`
	// Include are glob patterns selecting class files inside directories and
	// archives, matched against slash-separated relative paths.
	Include []string `mapstructure:"include" yaml:"include"`
}

// WatchConfig controls `jdecomp watch`.
type WatchConfig struct {
	// DebounceMs coalesces bursts of writes to the same class file (default: 300)
	DebounceMs int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
}

// PumpConfig tunes the stdout/stderr pumpers.
type PumpConfig struct {
	// DrainTimeoutMs is how long pumpers may keep draining after the process
	// exits before they are stopped (default: 2000)
	DrainTimeoutMs int `mapstructure:"drain_timeout_ms" yaml:"drain_timeout_ms"`
	// TailBytes is how much of stderr is kept for diagnostics (default: 8192)
	TailBytes int `mapstructure:"tail_bytes" yaml:"tail_bytes"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Decompiler: DecompilerConfig{
			Path: "",
			Properties: []Property{
				{Flag: "ff"},
				{Flag: "space"},
				{Flag: "nonlb"},
			},
			ReformatStyle:  StyleNone,
			TimeoutSeconds: 120,
		},
		Output: OutputConfig{
			Directory:       "decompiled",
			CreateIfMissing: true,
			Extension:       "java",
		},
		Exclusions: []ExclusionRule{},
		Scope:      ScopeProject,
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Batch: BatchConfig{
			MaxParallel: 4,
			Include:     []string{"**.class"},
		},
		Watch: WatchConfig{
			DebounceMs: 300,
		},
		Pump: PumpConfig{
			DrainTimeoutMs: 2000,
			TailBytes:      8192,
		},
	}
}

// Clone returns a deep copy of c. The orchestrator hands clones to the
// interactive prompt so the running config is never mutated in place.
func (c *Config) Clone() *Config {
	out := *c
	out.Decompiler.Properties = append([]Property(nil), c.Decompiler.Properties...)
	out.Exclusions = append([]ExclusionRule(nil), c.Exclusions...)
	out.Batch.Include = append([]string(nil), c.Batch.Include...)
	return &out
}

// Timeout returns the decompiler timeout as a time.Duration (0 means disabled)
func (c *DecompilerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DebounceInterval returns the watch debounce as a time.Duration
func (c *WatchConfig) DebounceInterval() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// DrainTimeout returns the pumper drain grace period as a time.Duration
func (c *PumpConfig) DrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeoutMs) * time.Millisecond
}

// ResolveDirectory returns the absolute output root.
// If Directory starts with ~, it expands to the user's home directory.
// If Directory is relative, it's resolved relative to baseDir.
func (o *OutputConfig) ResolveDirectory(baseDir string) string {
	path := expandHome(o.Directory)
	if path == "" {
		path = "decompiled"
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

// ResolveDirectory returns the log directory, defaulting to <config dir>/logs.
func (l *LoggingConfig) ResolveDirectory() string {
	if l.Directory == "" {
		return filepath.Join(ConfigDir(), "logs")
	}
	return expandHome(l.Directory)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Decompiler defaults
	v.SetDefault("decompiler.path", defaults.Decompiler.Path)
	v.SetDefault("decompiler.properties", propertyMaps(defaults.Decompiler.Properties))
	v.SetDefault("decompiler.reformat_style", defaults.Decompiler.ReformatStyle)
	v.SetDefault("decompiler.timeout_seconds", defaults.Decompiler.TimeoutSeconds)

	// Output defaults
	v.SetDefault("output.directory", defaults.Output.Directory)
	v.SetDefault("output.create_if_missing", defaults.Output.CreateIfMissing)
	v.SetDefault("output.extension", defaults.Output.Extension)

	v.SetDefault("exclusions", []map[string]any{})
	v.SetDefault("scope", defaults.Scope)

	// Logging defaults
	v.SetDefault("logging.enabled", defaults.Logging.Enabled)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.directory", defaults.Logging.Directory)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.compress", defaults.Logging.Compress)

	// Batch defaults
	v.SetDefault("batch.max_parallel", defaults.Batch.MaxParallel)
	v.SetDefault("batch.include", defaults.Batch.Include)

	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)

	v.SetDefault("pump.drain_timeout_ms", defaults.Pump.DrainTimeoutMs)
	v.SetDefault("pump.tail_bytes", defaults.Pump.TailBytes)
}

// propertyMaps converts properties to the generic form viper stores for
// values read from a file, so defaults and file values decode the same way.
func propertyMaps(props []Property) []map[string]any {
	out := make([]map[string]any, len(props))
	for i, p := range props {
		out[i] = map[string]any{
			"flag":     p.Flag,
			"value":    p.Value,
			"attached": p.Attached,
			"disabled": p.Disabled,
		}
	}
	return out
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// LoadFile reads only the config file at path on top of the defaults,
// without environment variables or flags. A missing file yields the
// defaults.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "jdecomp")
	}
	// Fall back to ~/.config/jdecomp
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jdecomp"
	}
	return filepath.Join(home, ".config", "jdecomp")
}

// ConfigFile returns the config file for scope. Project configs live in
// baseDir; anything else resolves to the application config.
func ConfigFile(scope, baseDir string) string {
	if scope == ScopeProject {
		return filepath.Join(baseDir, ProjectConfigName)
	}
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

// ValidReformatStyles returns the list of valid reformat styles
func ValidReformatStyles() []string {
	return []string{StyleNone, StyleProgrammer, StyleDebuggable}
}

// ValidScopes returns the list of valid config scopes
func ValidScopes() []string {
	return []string{ScopeProject, ScopeApplication}
}
