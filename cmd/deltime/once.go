package main

import (
	"github.com/flemzord/deltime/internal/scheduler"
	"github.com/flemzord/deltime/internal/task"
	"github.com/flemzord/deltime/pkg/app"
	"github.com/spf13/cobra"
)

func onceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Schedule a single deletion and exit when it is done",
		Long: `Schedule the deletion of one file or directory and wait for it.

Without --repeat the command exits after the deletion. With --repeat the
deletion runs every interval until the process is stopped.`,
		Example: `  deltime once --file /tmp/build.log --interval 30
  deltime once -f ~/Downloads -m '*.part' -i 60 --repeat
  deltime once -f /srv/export.csv --date "2026-12-31 23:00"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := onceDefinition(cmd)
			if err != nil {
				return err
			}
			params := baseParams(cmd)
			params.Tasks = []task.Definition{def}
			params.ExitWhenDone = true
			return app.Run(cmd.Context(), params)
		},
	}

	f := cmd.Flags()
	f.StringP("file", "f", "", "File or directory to delete")
	f.Uint32P("interval", "i", 0, "Delay in minutes before the deletion")
	f.StringP("date", "d", "", "Date of the deletion (RFC 3339 or \"YYYY-MM-DD HH:MM\")")
	f.BoolP("repeat", "r", false, "Repeat the deletion forever")
	f.StringP("mask", "m", "", "Glob of the files to delete inside a directory")
	f.Bool("visible", true, "Show the path next to the progress bar")

	_ = cmd.MarkFlagRequired("file")
	cmd.MarkFlagsOneRequired("interval", "date")
	cmd.MarkFlagsMutuallyExclusive("interval", "date")
	return cmd
}

// onceDefinition builds the task described by the once flags.
func onceDefinition(cmd *cobra.Command) (task.Definition, error) {
	f := cmd.Flags()
	path, _ := f.GetString("file")
	interval, _ := f.GetUint32("interval")
	rawDate, _ := f.GetString("date")
	repeat, _ := f.GetBool("repeat")
	mask, _ := f.GetString("mask")
	visible, _ := f.GetBool("visible")

	def := task.Definition{
		Path:     path,
		Mask:     mask,
		Interval: interval,
		Repeat:   scheduler.Once,
		Visible:  visible,
	}
	if repeat {
		def.Repeat = scheduler.Forever
	}
	if rawDate != "" {
		d, err := task.ParseDate(rawDate)
		if err != nil {
			return task.Definition{}, err
		}
		def.Date = d
	}
	if err := def.Validate(); err != nil {
		return task.Definition{}, err
	}
	return def, nil
}
