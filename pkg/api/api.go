// Package api provides the public API for using the Lua obfuscator as a library.
//
// This package allows users to obfuscate Lua code programmatically using the
// same pipeline available from the command-line interface. The API provides
// methods for obfuscating Lua code strings, files, and directories.
//
// Basic usage example:
//
//	obf, err := api.NewObfuscator(api.Options{Preset: "Strong"})
//	if err != nil {
//	    log.Fatalf("Failed to create obfuscator: %v", err)
//	}
//
//	result, err := obf.ObfuscateCode(`print("Hello World")`)
//	if err != nil {
//	    log.Fatalf("Failed to obfuscate code: %v", err)
//	}
//
//	fmt.Println(result) // Prints obfuscated Lua code
package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/whit3rabbit/luamixer/internal/config"
	"github.com/whit3rabbit/luamixer/internal/obfuscator"
	"github.com/whit3rabbit/luamixer/internal/scrambler"
)

// PrintInfo prints formatted information to stdout, respecting the Testing flag.
// If Testing mode is active, no output will be generated.
// This function forwards to the internal config.PrintInfo function.
func PrintInfo(format string, args ...interface{}) {
	config.PrintInfo(format, args...)
}

// Obfuscator is the main obfuscation engine. It wraps a validated pipeline;
// one instance can process any number of inputs with the same configuration.
type Obfuscator struct {
	// Config holds the configuration settings for obfuscation
	Config *config.Config

	pipeline *obfuscator.Pipeline
}

// Options represents configuration options for creating a new Obfuscator instance.
type Options struct {
	// ConfigPath is the path to a YAML configuration file.
	// If empty, the Preset (or the default configuration) is used instead.
	ConfigPath string

	// Preset selects a named strength level: Minify, Weak, Medium or Strong.
	// Ignored when ConfigPath is set.
	Preset string

	// Silent suppresses informational messages during obfuscation.
	Silent bool

	// Seed overrides the configured random seed when non-zero, making the
	// output reproducible.
	Seed int64
}

// NewObfuscator creates a new Obfuscator instance using the provided options.
//
// Configuration is resolved in order: ConfigPath if set, then Preset if set,
// then the default configuration. The resulting configuration is validated
// up front; invalid step lists or option values fail here, not during
// obfuscation.
func NewObfuscator(options Options) (*Obfuscator, error) {
	var cfg *config.Config
	var err error
	switch {
	case options.ConfigPath != "":
		cfg, err = config.LoadConfig(options.ConfigPath)
	case options.Preset != "":
		cfg, err = config.GetPreset(options.Preset)
	default:
		cfg = config.DefaultConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if options.Silent {
		cfg.Silent = true
	}
	if options.Seed != 0 {
		cfg.Seed = options.Seed
	}

	pipeline, err := obfuscator.NewPipeline(cfg)
	if err != nil {
		return nil, err
	}

	return &Obfuscator{
		Config:   cfg,
		pipeline: pipeline,
	}, nil
}

// ObfuscateCode obfuscates a string of Lua code and returns the obfuscated code.
func (o *Obfuscator) ObfuscateCode(code string) (string, error) {
	result, err := o.pipeline.Obfuscate(code)
	if err != nil {
		return "", fmt.Errorf("failed to obfuscate code: %w", err)
	}
	return result, nil
}

// ObfuscateFile obfuscates a Lua file and returns the obfuscated code.
//
// Parameters:
//   - filePath: The path to the Lua file to obfuscate
//
// Returns the obfuscated Lua code as a string, or an error if obfuscation fails.
func (o *Obfuscator) ObfuscateFile(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	result, err := o.pipeline.Obfuscate(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to obfuscate file %s: %w", filePath, err)
	}
	return result, nil
}

// ObfuscateFileToFile obfuscates a Lua file and writes the result to another file.
//
// Parameters:
//   - inputPath: The path to the Lua file to obfuscate
//   - outputPath: The path where the obfuscated code will be written
//
// Returns an error if obfuscation or file operations fail.
func (o *Obfuscator) ObfuscateFileToFile(inputPath, outputPath string) error {
	result, err := o.ObfuscateFile(inputPath)
	if err != nil {
		return err
	}

	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	if err := os.WriteFile(outputPath, []byte(result), 0644); err != nil {
		return fmt.Errorf("failed to write to output file %s: %w", outputPath, err)
	}

	return nil
}

// ObfuscateDirectory obfuscates all Lua files in a directory and writes the
// results to another directory.
//
// The function processes .lua and .luau files recursively, preserving the
// directory structure, and copies every other file through unchanged.
//
// Returns an error if directory operations or obfuscation fail.
func (o *Obfuscator) ObfuscateDirectory(inputDir, outputDir string) error {
	inputInfo, err := os.Stat(inputDir)
	if err != nil {
		return fmt.Errorf("failed to stat input directory %s: %w", inputDir, err)
	}
	if !inputInfo.IsDir() {
		return fmt.Errorf("input path %s is not a directory", inputDir)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	return o.processDirectoryRecursive(inputDir, outputDir)
}

// processDirectoryRecursive is a helper function for recursive directory processing
func (o *Obfuscator) processDirectoryRecursive(inputDir, outputDir string) error {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", inputDir, err)
	}

	for _, entry := range entries {
		inputPath := filepath.Join(inputDir, entry.Name())
		outputPath := filepath.Join(outputDir, entry.Name())

		if entry.IsDir() {
			if err := os.MkdirAll(outputPath, 0755); err != nil {
				return fmt.Errorf("failed to create output directory %s: %w", outputPath, err)
			}
			if err := o.processDirectoryRecursive(inputPath, outputPath); err != nil {
				return err
			}
			continue
		}

		if isLuaFile(entry.Name()) {
			if err := o.ObfuscateFileToFile(inputPath, outputPath); err != nil {
				return err
			}
			if !o.Config.Silent {
				PrintInfo("Processed: %s -> %s\n", inputPath, outputPath)
			}
		} else {
			content, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("failed to read file %s: %w", inputPath, err)
			}
			if err := os.WriteFile(outputPath, content, 0644); err != nil {
				return fmt.Errorf("failed to write file %s: %w", outputPath, err)
			}
			if !o.Config.Silent {
				PrintInfo("Copied: %s -> %s\n", inputPath, outputPath)
			}
		}
	}

	return nil
}

// Helper to check if a file is a Lua source file
func isLuaFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".lua" || ext == ".luau"
}

// Mapping returns the original-to-generated identifier pairs from the most
// recent obfuscation run. Useful for keeping a rename report alongside the
// output.
func (o *Obfuscator) Mapping() []scrambler.MappingEntry {
	return o.pipeline.Mapping()
}

// Seed returns the random seed the most recent run used. When the configured
// seed was 0, this is the clock-derived seed that reproduces the run.
func (o *Obfuscator) Seed() int64 {
	return o.pipeline.Seed()
}
