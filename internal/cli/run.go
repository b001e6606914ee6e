package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rahul/taskbreak/internal/export"
	"github.com/rahul/taskbreak/internal/gateway"
	"github.com/rahul/taskbreak/internal/observability"
	"github.com/rahul/taskbreak/internal/session"
)

func newRunCmd(app *App) *cobra.Command {
	var (
		doExport  bool
		stepsOnly bool
		chatID    string
	)

	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Break a task down and write every step in one go",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.Join(args, " ")
			if strings.TrimSpace(task) == "" {
				return session.ErrEmptyInput
			}

			rt, err := bootstrap(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.logger.SetOutput(io.Discard)

			s := rt.newSession(chatID)
			out := cmd.OutOrStdout()

			if err := s.Submit(cmd.Context(), task); err != nil {
				return err
			}
			snap := s.Snapshot()
			if snap.Error != "" {
				return errors.New(snap.Error)
			}
			fmt.Fprintln(out, gateway.FormatSteps(snap))
			if stepsOnly {
				return nil
			}

			fmt.Fprintf(out, "\nWriting %d steps...\n", len(snap.Steps))
			if err := s.GenerateAll(cmd.Context()); err != nil {
				return err
			}
			snap = s.Snapshot()

			var renderer *glamour.TermRenderer
			if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				renderer = gateway.NewMarkdownRenderer(observability.TermWidth())
			}
			fmt.Fprintln(out, gateway.RenderMarkdown(renderer, export.Clipboard(snap.Steps)))

			if doExport {
				path, err := export.WriteFile(rt.cfg.App.Workspace, export.Filename(snap.Input), export.Text(snap.Steps))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Saved %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&doExport, "export", false, "Also save the plain-text export into the workspace")
	cmd.Flags().BoolVar(&stepsOnly, "steps-only", false, "Stop after the breakdown")
	cmd.Flags().StringVar(&chatID, "chat", "cli", "Chat ID runs are archived under")
	return cmd
}
