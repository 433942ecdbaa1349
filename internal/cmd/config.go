package cmd

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/jdecomp/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify jdecomp configuration",
	Long: `View or modify jdecomp configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the active config file.

Keys use dot notation, e.g.:
  jdecomp config set decompiler.path /usr/local/bin/jad
  jdecomp config set decompiler.reformat_style debuggable
  jdecomp config set output.directory src-decompiled

Valid keys:
  decompiler.path            - Decompiler executable
  decompiler.reformat_style  - none, programmer, debuggable
  decompiler.timeout_seconds - Kill the decompiler after this long (0 = never)
  output.directory           - Output root (relative to the working directory)
  output.create_if_missing   - Create the output root (true/false)
  output.extension           - Source file extension
  scope                      - project, application
  logging.enabled            - Write the debug log (true/false)
  logging.level              - debug, info, warn, error
  batch.max_parallel         - Parallel decompilations
  watch.debounce_ms          - Quiet period before decompiling a changed class
  pump.drain_timeout_ms      - Wait for output after the decompiler exits
  pump.tail_bytes            - Stderr kept for diagnostics`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configExcludeCmd = &cobra.Command{
	Use:   "exclude <package>",
	Short: "Add or remove a package exclusion rule",
	Long: `Add a rule that skips every class whose package starts with <package>.
Matching is a case-sensitive prefix match, so "com.foo" also covers
"com.foobar". Use --remove to delete the rule again.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigExclude,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long: `Create a default config file with all available options, in the working
directory (--scope project, the default) or in ~/.config/jdecomp
(--scope application).`,
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var (
	configInitScope   string
	configExcludeOff  bool
	configExcludeFlat bool
	configExcludeDrop bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configExcludeCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().StringVar(&configInitScope, "scope", config.ScopeProject, "Where to create the file (project, application)")
	configExcludeCmd.Flags().BoolVar(&configExcludeOff, "disabled", false, "Add the rule switched off")
	configExcludeCmd.Flags().BoolVar(&configExcludeFlat, "non-recursive", false, "Add the rule as non-recursive")
	configExcludeCmd.Flags().BoolVar(&configExcludeDrop, "remove", false, "Remove rules for <package>")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "# Config file: (none - using defaults)\n")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := setConfigValue(cfg, args[0], args[1]); err != nil {
		return err
	}
	return saveConfig(cmd, cfg, fmt.Sprintf("Set %s = %s", args[0], args[1]))
}

func runConfigExclude(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pkg := strings.TrimSpace(args[0])

	if configExcludeDrop {
		before := len(cfg.Exclusions)
		cfg.Exclusions = removeExclusion(cfg.Exclusions, pkg)
		if len(cfg.Exclusions) == before {
			return fmt.Errorf("no exclusion rule for %s", pkg)
		}
		return saveConfig(cmd, cfg, "Removed exclusion "+pkg)
	}

	cfg.Exclusions = append(cfg.Exclusions, config.ExclusionRule{
		Package:   pkg,
		Applies:   !configExcludeOff,
		Recursive: !configExcludeFlat,
	})
	return saveConfig(cmd, cfg, "Added exclusion "+pkg)
}

func removeExclusion(rules []config.ExclusionRule, pkg string) []config.ExclusionRule {
	return slices.DeleteFunc(slices.Clone(rules), func(r config.ExclusionRule) bool {
		return r.Package == pkg
	})
}

// saveConfig validates cfg and writes it to the active config file.
func saveConfig(cmd *cobra.Command, cfg *config.Config, msg string) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return config.ValidationErrors(errs)
	}
	path, err := activeConfigFile(cfg)
	if err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", path)
	return nil
}

type settableKey struct {
	kind string // "string", "bool", "int", "select"
	set  func(c *config.Config, v any)
	opts func() []string
}

var settableKeys = map[string]settableKey{
	"decompiler.path":            {kind: "string", set: func(c *config.Config, v any) { c.Decompiler.Path = v.(string) }},
	"decompiler.reformat_style":  {kind: "select", set: func(c *config.Config, v any) { c.Decompiler.ReformatStyle = v.(string) }, opts: config.ValidReformatStyles},
	"decompiler.timeout_seconds": {kind: "int", set: func(c *config.Config, v any) { c.Decompiler.TimeoutSeconds = v.(int) }},
	"output.directory":           {kind: "string", set: func(c *config.Config, v any) { c.Output.Directory = v.(string) }},
	"output.create_if_missing":   {kind: "bool", set: func(c *config.Config, v any) { c.Output.CreateIfMissing = v.(bool) }},
	"output.extension":           {kind: "string", set: func(c *config.Config, v any) { c.Output.Extension = v.(string) }},
	"scope":                      {kind: "select", set: func(c *config.Config, v any) { c.Scope = v.(string) }, opts: config.ValidScopes},
	"logging.enabled":            {kind: "bool", set: func(c *config.Config, v any) { c.Logging.Enabled = v.(bool) }},
	"logging.level":              {kind: "select", set: func(c *config.Config, v any) { c.Logging.Level = v.(string) }, opts: config.ValidLogLevels},
	"batch.max_parallel":         {kind: "int", set: func(c *config.Config, v any) { c.Batch.MaxParallel = v.(int) }},
	"watch.debounce_ms":          {kind: "int", set: func(c *config.Config, v any) { c.Watch.DebounceMs = v.(int) }},
	"pump.drain_timeout_ms":      {kind: "int", set: func(c *config.Config, v any) { c.Pump.DrainTimeoutMs = v.(int) }},
	"pump.tail_bytes":            {kind: "int", set: func(c *config.Config, v any) { c.Pump.TailBytes = v.(int) }},
}

// setConfigValue parses value for key and stores it in cfg.
func setConfigValue(cfg *config.Config, key, value string) error {
	k, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'jdecomp config set --help' to see valid keys", key)
	}

	var typedValue any
	switch k.kind {
	case "string":
		typedValue = value
	case "select":
		if !slices.Contains(k.opts(), value) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s", key, value, strings.Join(k.opts(), ", "))
		}
		typedValue = value
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	k.set(cfg, typedValue)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if !slices.Contains(config.ValidScopes(), configInitScope) {
		return fmt.Errorf("invalid scope %q\nValid options: %s", configInitScope, strings.Join(config.ValidScopes(), ", "))
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	configFile := config.ConfigFile(configInitScope, cwd)

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'jdecomp config set' to modify values", configFile)
	}

	cfg := config.Default()
	cfg.Scope = configInitScope
	if err := config.Save(cfg, configFile); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	fmt.Fprintln(cmd.OutOrStdout(), "Set decompiler.path before decompiling: jdecomp config set decompiler.path <jad>")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "Active config: (none - using defaults)")
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	for i, path := range configSearchPaths() {
		fmt.Fprintf(out, "  %d. %s\n", i+1, path)
	}
	fmt.Fprintln(out, "\nEnvironment variables: JDECOMP_* (e.g., JDECOMP_DECOMPILER_PATH)")
	return nil
}
