package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whit3rabbit/luamixer/internal/config"
	"github.com/whit3rabbit/luamixer/internal/obfuscator"
)

var (
	outputFile  string // Flag variable for output file path
	mappingFile string // Flag variable for the rename report path
)

// fileCmd represents the obfuscate file command
var fileCmd = &cobra.Command{
	Use:   "file <lua_file_path>",
	Short: "Obfuscate a single Lua file",
	Long: `Reads a single Lua file, applies the configured pipeline steps,
renames all locals, and outputs the result to stdout or a specified file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		cmd.SilenceUsage = true
		filePath := args[0]

		pipeline, err := obfuscator.NewPipeline(cfg)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("error reading file %s: %w", filePath, err)
		}
		if !cfg.Silent {
			config.PrintInfo("Info: Processing file: %s\n", filePath)
		}

		result, err := pipeline.Obfuscate(string(content))
		if err != nil {
			return fmt.Errorf("error processing file %s: %w", filePath, err)
		}

		if mappingFile != "" {
			if err := writeMapping(mappingFile, pipeline); err != nil {
				return err
			}
		}

		if outputFile != "" {
			if !cfg.Silent {
				config.PrintInfo("Info: Writing output to file: %s\n", outputFile)
			}
			if err := os.WriteFile(outputFile, []byte(result), 0644); err != nil {
				return fmt.Errorf("error writing to output file %s: %w", outputFile, err)
			}
			return nil
		}
		fmt.Print(result)
		return nil
	},
}

// writeMapping dumps the original-to-generated name pairs, one per line.
func writeMapping(path string, pipeline *obfuscator.Pipeline) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating mapping file %s: %w", path, err)
	}
	defer f.Close()
	fmt.Fprintf(f, "# seed: %d\n", pipeline.Seed())
	for _, entry := range pipeline.Mapping() {
		fmt.Fprintf(f, "%s\t%s\n", entry.Original, entry.Generated)
	}
	return nil
}

func init() {
	obfuscateCmd.AddCommand(fileCmd)
	fileCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: stdout)")
	fileCmd.Flags().StringVar(&mappingFile, "mapping", "", "Write the identifier rename report to this path")
}
