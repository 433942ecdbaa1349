package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/jdecomp/internal/config"
	"github.com/Iron-Ham/jdecomp/internal/errors"
)

var rootCmd = &cobra.Command{
	Use:   "jdecomp",
	Short: "Decompile Java class files with an external decompiler",
	Long: `jdecomp drives an external Java decompiler (jad) over class files,
directories of class files, and jar archives.

It validates the configured decompiler, skips classes in excluded packages,
writes each class's source below the output directory using the package
layout, and reports what the decompiler printed on failure.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any error it returns.
func Execute() error {
	c, err := rootCmd.ExecuteC()
	if err != nil {
		reportError(rootCmd.ErrOrStderr(), c, err)
	}
	return err
}

// reportError prints err. Errors from the decompilation domain already say
// what went wrong and where; anything else is usually a mistyped command,
// so it gets a pointer to the help text.
func reportError(w io.Writer, c *cobra.Command, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if errors.IsUserFacing(err) {
		return
	}
	fmt.Fprintf(w, "Run '%s --help' for usage.\n", c.CommandPath())
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./.jdecomp.yaml, then $HOME/.config/jdecomp/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("no-input", false, "never prompt, even on a terminal")
	bindFlags()
}

// bindFlags connects the global flags to their viper keys.
func bindFlags() {
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("no_input", rootCmd.PersistentFlags().Lookup("no-input"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if path := findConfigFile(); path != "" {
		viper.SetConfigFile(path)
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("JDECOMP")
	// Replace dots with underscores for nested keys in env vars
	// e.g., JDECOMP_DECOMPILER_PATH for decompiler.path
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// findConfigFile returns the project config in the working directory if
// present, else the application config if present.
func findConfigFile() string {
	for _, path := range configSearchPaths() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func configSearchPaths() []string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return []string{
		config.ConfigFile(config.ScopeProject, cwd),
		config.ConfigFile(config.ScopeApplication, cwd),
	}
}

// activeConfigFile is where configuration changes are written: the file in
// use, or the default location for cfg's scope.
func activeConfigFile(cfg *config.Config) (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return config.ConfigFile(cfg.Scope, cwd), nil
}
