package cmd

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandwichlabs/mcpc/internal/tasklist"
	"github.com/sandwichlabs/mcpc/internal/tui"
	"github.com/spf13/cobra"
)

var (
	followPath  string
	printOnce   bool
	compactOnce bool
)

var tasksCmd = &cobra.Command{
	Use:   "tasks [reference...]",
	Short: "Show the latest task list.",
	Long: `tasks shows the most recent of the given task list references. With --follow,
references are read from a file, one per line, and the panel tracks the last line
as the file changes.`,
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().StringVar(&followPath, "follow", "", "File of task list references to watch")
	tasksCmd.Flags().BoolVar(&printOnce, "print", false, "Render once to stdout instead of starting the TUI")
	tasksCmd.Flags().BoolVar(&compactOnce, "compact", false, "With --print, show only the highlighted task")
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	cfg := appConfig()

	source, stop, err := taskSource(args)
	if err != nil {
		return err
	}
	defer stop()

	panel := tui.NewTaskPanel(source, newFetcherFn(cfg), cfg.Panel.CompactWidth)
	if printOnce {
		panel = panel.Load(cmd.Context())
		if err := panel.Err(); err != nil {
			slog.Warn("Task list unavailable", "error", err)
			return nil
		}
		panel.SetCompact(compactOnce)
		if view := panel.View(); view != "" {
			fmt.Fprintln(cmd.OutOrStdout(), view)
		}
		return nil
	}

	_, err = tea.NewProgram(panel, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}

func taskSource(args []string) (tasklist.Source, func(), error) {
	if followPath == "" {
		refs := make(tasklist.StaticSource, len(args))
		for i, a := range args {
			refs[i] = tasklist.Reference(a)
		}
		return refs, func() {}, nil
	}
	if len(args) > 0 {
		return nil, nil, fmt.Errorf("--follow cannot be combined with reference arguments")
	}

	fs, err := tasklist.NewFileSource(followPath)
	if err != nil {
		return nil, nil, err
	}
	if err := fs.Start(); err != nil {
		fs.Stop()
		return nil, nil, err
	}
	return fs, fs.Stop, nil
}
