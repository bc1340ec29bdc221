// Package cmd implements the command line interface for the application.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whit3rabbit/luamixer/internal/config"
)

var (
	cfgFile string         // config file path from the flag
	preset  string         // preset name from the flag
	cfg     *config.Config // loaded configuration, shared by subcommands

	// Flag variables mapped to config fields for override
	silentMode  bool   // -> cfg.Silent
	debugMode   bool   // -> cfg.DebugMode
	prettyPrint bool   // -> cfg.PrettyPrint
	seed        int64  // -> cfg.Seed
	luaVersion  string // -> cfg.LuaVersion
	nameGen     string // -> cfg.NameGenerator
	namePrefix  string // -> cfg.VarNamePrefix
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "luamixer",
	Short: "A CLI tool to obfuscate Lua and Luau code.",
	Long: `luamixer rewrites Lua source through a pipeline of semantics-preserving
transformations (string encryption, constant pooling, control flow
flattening, virtualization) and renames every local identifier.`,
	// PersistentPreRunE runs before any subcommand's RunE; configuration is
	// resolved once here so every subcommand sees the same cfg.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg != nil {
			return nil
		}
		var err error
		switch {
		case cfgFile != "":
			cfg, err = config.LoadConfig(cfgFile)
		case preset != "":
			cfg, err = config.GetPreset(preset)
		default:
			cfg, err = config.LoadConfig("")
		}
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		applyFlagOverrides(cfg, cmd)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// applyFlagOverrides applies command-line flag values to the config struct.
// Only overrides if the flag was explicitly set by the user via Changed().
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("silent") {
		cfg.Silent = silentMode
	}
	if flags.Changed("debug") {
		cfg.DebugMode = debugMode
	}
	if flags.Changed("pretty") {
		cfg.PrettyPrint = prettyPrint
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("lua-version") {
		cfg.LuaVersion = luaVersion
	}
	if flags.Changed("name-generator") {
		cfg.NameGenerator = nameGen
	}
	if flags.Changed("prefix") {
		cfg.VarNamePrefix = namePrefix
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra prints the error; exit non-zero.
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./luamixer.yaml)")
	rootCmd.PersistentFlags().StringVarP(&preset, "preset", "p", "", "preset strength: Minify, Weak, Medium or Strong (ignored with --config)")

	rootCmd.PersistentFlags().BoolVarP(&silentMode, "silent", "s", false, "Suppress informational output (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable verbose step diagnostics (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&prettyPrint, "pretty", false, "Indent the output instead of compacting it (overrides config)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "Random seed; 0 derives one from the clock (overrides config)")
	rootCmd.PersistentFlags().StringVar(&luaVersion, "lua-version", "Lua51", "Input dialect: Lua51 or Luau (overrides config)")
	rootCmd.PersistentFlags().StringVar(&nameGen, "name-generator", "mangled", "Identifier style: mangled or confuse (overrides config)")
	rootCmd.PersistentFlags().StringVar(&namePrefix, "prefix", "", "Prefix for every generated identifier (overrides config)")

	rootCmd.AddCommand(obfuscateCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(configCmd)
}
