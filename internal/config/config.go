// Package config loads, validates and persists obfuscation configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// StepConfig names one pipeline step with its options. Option keys are
// step-specific; unknown step names are a configuration error.
type StepConfig struct {
	Name    string         `yaml:"name" mapstructure:"name"`
	Options map[string]any `yaml:"options,omitempty" mapstructure:"options"`
}

// Config holds all settings for one obfuscation run.
// Struct tags control how Viper maps config file keys and environment
// variables.
type Config struct {
	// LuaVersion selects the input dialect: "Lua51" or "Luau".
	LuaVersion string `yaml:"lua_version" mapstructure:"lua_version"`

	// VarNamePrefix is prepended to every generated identifier.
	VarNamePrefix string `yaml:"var_name_prefix" mapstructure:"var_name_prefix"`

	// NameGenerator picks the renaming style: "mangled" or "confuse".
	NameGenerator string `yaml:"name_generator" mapstructure:"name_generator"`

	// PrettyPrint emits indented output instead of the compact form.
	PrettyPrint bool `yaml:"pretty_print" mapstructure:"pretty_print"`

	// Seed drives every random choice in the run. 0 derives a seed from the
	// clock; any other value makes the output fully reproducible.
	Seed int64 `yaml:"seed" mapstructure:"seed"`

	// Steps run in order, before the always-on renamer.
	Steps []StepConfig `yaml:"steps" mapstructure:"steps"`

	// General behavior
	Silent    bool `yaml:"silent" mapstructure:"silent"`         // Suppress informational messages
	DebugMode bool `yaml:"debug_mode" mapstructure:"debug_mode"` // Enable verbose debug logging
}

// ConfigError reports a problem with user-supplied configuration: an unknown
// step name, an unsatisfiable step ordering, or an invalid option value.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Viper requires keys to be lowercase for automatic env var binding.
var defaults = map[string]any{
	"lua_version":     "Lua51",
	"var_name_prefix": "",
	"name_generator":  "mangled",
	"pretty_print":    false,
	"seed":            0,
	"silent":          false,
	"debug_mode":      false,
}

var (
	// Testing controls whether output is suppressed for testing purposes
	Testing bool
)

// PrintInfo prints an informational line unless tests silenced output.
func PrintInfo(format string, args ...any) {
	if !Testing {
		fmt.Printf(format, args...)
	}
}

// DefaultConfig returns the Medium preset, the default strength.
func DefaultConfig() *Config {
	cfg, _ := GetPreset("Medium")
	return cfg
}

// LoadConfig reads configuration from a YAML file and LUAMIXER_* environment
// variables. An empty path falls back to luamixer.yaml when present, or the
// defaults when not.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix("LUAMIXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	explicit := configPath != ""
	if configPath == "" {
		configPath = "luamixer.yaml"
	}
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	} else if os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("specified config file not found: %s", configPath)
		}
	} else {
		return nil, fmt.Errorf("error checking config file %s: %w", configPath, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", configPath, err)
	}
	if !cfg.Silent && explicit {
		PrintInfo("Info: Loaded configuration from %s\n", configPath)
	}
	return cfg, nil
}

// SaveConfig writes a commented default configuration, for `config init`.
func SaveConfig(configPath string) error {
	cfg := DefaultConfig()
	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshalling default config: %w", err)
	}
	header := "# luamixer configuration.\n" +
		"# lua_version: Lua51 or Luau.\n" +
		"# name_generator: mangled (short names) or confuse (homoglyphs).\n" +
		"# seed: 0 picks a fresh seed per run; any other value reproduces output.\n" +
		"# steps run in order; the renamer always runs afterwards.\n"
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory for config file %s: %w", configPath, err)
	}
	if err := os.WriteFile(configPath, append([]byte(header), yamlData...), 0644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configPath, err)
	}
	PrintInfo("Info: Saved default configuration to %s\n", configPath)
	return nil
}

// Presets are the named step orderings of increasing strength. Minify renames
// only; the step lists mirror the strengths the original tool shipped with.
var presets = map[string][]StepConfig{
	"Minify": {},
	"Weak": {
		{Name: "Vmify"},
		{Name: "ConstantArray"},
	},
	"Medium": {
		{Name: "EncryptStrings"},
		{Name: "Vmify"},
		{Name: "ConstantArray", Options: map[string]any{"Threshold": 1, "StringsOnly": false}},
		{Name: "WrapInFunction"},
	},
	"Strong": {
		{Name: "EncryptStrings"},
		{Name: "ConstantArray"},
		{Name: "NumbersToExpressions"},
		{Name: "ControlFlowFlattening"},
		{Name: "Vmify"},
		{Name: "AntiTamper"},
		{Name: "WrapInFunction"},
	},
}

// GetPreset returns a fresh Config for a preset name.
func GetPreset(name string) (*Config, error) {
	steps, ok := presets[name]
	if !ok {
		return nil, &ConfigError{Field: "preset", Msg: fmt.Sprintf("unknown preset %q (want one of: %s)", name, strings.Join(PresetNames(), ", "))}
	}
	cloned := make([]StepConfig, len(steps))
	for i, s := range steps {
		cloned[i] = StepConfig{Name: s.Name}
		if s.Options != nil {
			cloned[i].Options = make(map[string]any, len(s.Options))
			for k, v := range s.Options {
				cloned[i].Options[k] = v
			}
		}
	}
	return &Config{
		LuaVersion:    "Lua51",
		NameGenerator: "mangled",
		Steps:         cloned,
	}, nil
}

// PresetNames lists the presets from weakest to strongest.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return presetRank(names[i]) < presetRank(names[j])
	})
	return names
}

func presetRank(name string) int {
	switch name {
	case "Minify":
		return 0
	case "Weak":
		return 1
	case "Medium":
		return 2
	case "Strong":
		return 3
	}
	return 4
}

// PresetSteps describes a preset's step list for display.
func PresetSteps(name string) ([]StepConfig, bool) {
	steps, ok := presets[name]
	return steps, ok
}
