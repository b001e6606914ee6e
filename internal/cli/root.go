package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "taskbreak",
		Short:        "Break a task into steps and write each one out",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Run the enabled chat gateways (Telegram, Discord)
  taskbreak serve

  # Interactive session in the terminal
  taskbreak console

  # One-shot: break down, write every step, save the export
  taskbreak run --export "Plan a 3-day trip to Taipei"
`),
	}

	cmd.PersistentFlags().StringVarP(&app.ConfigPath, "config", "c", "config.json", "Path to the JSON or YAML config file")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newConsoleCmd(app))
	cmd.AddCommand(newRunCmd(app))

	return cmd
}
