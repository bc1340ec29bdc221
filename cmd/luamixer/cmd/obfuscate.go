package cmd

import (
	"github.com/spf13/cobra"
)

// obfuscateCmd groups the file and dir subcommands.
var obfuscateCmd = &cobra.Command{
	Use:   "obfuscate",
	Short: "Obfuscate Lua code (use subcommands 'file' or 'dir')",
	Long: `Parent command for obfuscation operations.
Use 'obfuscate file <path>' for single files or 'obfuscate dir <in> <out>'
for whole directory trees.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}
