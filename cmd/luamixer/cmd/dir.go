package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/whit3rabbit/luamixer/internal/config"
	"github.com/whit3rabbit/luamixer/internal/obfuscator"
)

// dirCmd represents the obfuscate dir command
var dirCmd = &cobra.Command{
	Use:   "dir <input_dir> <output_dir>",
	Short: "Obfuscate all Lua files in a directory tree",
	Long: `Walks the input directory recursively, obfuscates every .lua and .luau
file into the mirrored location under the output directory, and copies all
other files through unchanged.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		cmd.SilenceUsage = true
		inputDir, outputDir := args[0], args[1]

		info, err := os.Stat(inputDir)
		if err != nil {
			return fmt.Errorf("error reading input directory %s: %w", inputDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("input path %s is not a directory", inputDir)
		}

		pipeline, err := obfuscator.NewPipeline(cfg)
		if err != nil {
			return err
		}

		processed, copied := 0, 0
		err = filepath.WalkDir(inputDir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(inputDir, path)
			if err != nil {
				return err
			}
			target := filepath.Join(outputDir, rel)
			if d.IsDir() {
				return os.MkdirAll(target, 0755)
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("error reading %s: %w", path, err)
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext == ".lua" || ext == ".luau" {
				result, err := pipeline.Obfuscate(string(content))
				if err != nil {
					return fmt.Errorf("error processing %s: %w", path, err)
				}
				content = []byte(result)
				processed++
				if !cfg.Silent {
					config.PrintInfo("Processed: %s -> %s\n", path, target)
				}
			} else {
				copied++
				if !cfg.Silent {
					config.PrintInfo("Copied: %s -> %s\n", path, target)
				}
			}
			return os.WriteFile(target, content, 0644)
		})
		if err != nil {
			return err
		}
		if !cfg.Silent {
			config.PrintInfo("Info: %d files obfuscated, %d copied\n", processed, copied)
		}
		return nil
	},
}

func init() {
	obfuscateCmd.AddCommand(dirCmd)
}
