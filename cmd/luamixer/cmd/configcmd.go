package cmd

import (
	"github.com/spf13/cobra"

	"github.com/whit3rabbit/luamixer/internal/config"
)

// configCmd groups configuration helpers.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// configInitCmd writes a commented default config file.
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default luamixer.yaml",
	Long: `Writes the default configuration, with comments, to the given path
(default ./luamixer.yaml) so it can be edited and passed back via --config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		path := "luamixer.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		return config.SaveConfig(path)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
