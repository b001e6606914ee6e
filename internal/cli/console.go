package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/rahul/taskbreak/internal/gateway"
)

func newConsoleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive session in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer rt.Close()
			// events still reach the llm log file
			rt.logger.SetOutput(io.Discard)

			c := gateway.NewConsoleGateway(cmd.Context(), rt.cfg.App.Workspace, rt.dispatcher())
			c.In = cmd.InOrStdin()
			c.Out = cmd.OutOrStdout()
			return c.Start()
		},
	}
}
