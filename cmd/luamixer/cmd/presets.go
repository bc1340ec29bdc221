package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/whit3rabbit/luamixer/internal/config"
)

// presetsCmd lists the built-in strength presets and their step lists.
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in obfuscation presets",
	Long: `Shows every preset from weakest to strongest with the pipeline steps
it enables. Pass a preset to --preset, or use 'config init' to start a
config file you can customize.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range config.PresetNames() {
			steps, _ := config.PresetSteps(name)
			if len(steps) == 0 {
				fmt.Printf("%-8s rename locals only\n", name)
				continue
			}
			parts := make([]string, len(steps))
			for i, s := range steps {
				parts[i] = s.Name
				if len(s.Options) > 0 {
					parts[i] += "*"
				}
			}
			fmt.Printf("%-8s %s\n", name, strings.Join(parts, ", "))
		}
		fmt.Println("\n* step runs with non-default options; see the documentation")
		return nil
	},
}
