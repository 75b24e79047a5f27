package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/deltime/internal/config"
	"github.com/flemzord/deltime/internal/scheduler"
	"github.com/flemzord/deltime/internal/task"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func printSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Configuration OK (%d tasks)\n", len(cfg.Tasks))
	for _, def := range cfg.Tasks {
		fmt.Fprintf(w, "  %s  %s, %s\n", describeTarget(def), describeTrigger(def), def.Repeat)
	}
	fmt.Fprintf(w, "removable: %s\n", onOff(cfg.Removable.IsEnabled()))
	fmt.Fprintf(w, "history:   %s\n", onOff(cfg.History.IsEnabled()))
	fmt.Fprintf(w, "gateway:   %s\n", onOff(cfg.Gateway.Enabled))
}

func describeTarget(def task.Definition) string {
	if def.Mask != "" {
		return def.Path + " (" + def.Mask + ")"
	}
	return def.Path
}

func describeTrigger(def task.Definition) string {
	if def.Interval > 0 {
		return fmt.Sprintf("every %d min", def.Interval)
	}
	return "at " + def.Date.Format("2006-01-02 15:04")
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Interactively add a task to a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else if candidates := config.SearchPaths(); len(candidates) > 0 {
				path = candidates[0]
			}

			answers := wizardAnswers{
				Trigger: triggerInterval,
				Repeat:  scheduler.Once.String(),
				Visible: true,
			}
			form := answers.form(&path).
				WithInput(cmd.InOrStdin()).
				WithOutput(cmd.ErrOrStderr())
			if err := form.RunWithContext(cmd.Context()); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return err
			}

			def, err := answers.definition()
			if err != nil {
				return err
			}
			if err := config.AppendTask(path, def); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s\n", describeTarget(def), path)
			return nil
		},
	}
}

const (
	triggerInterval = "interval"
	triggerDate     = "date"
)

// wizardAnswers holds the raw values typed in the config init form.
type wizardAnswers struct {
	Path     string
	Trigger  string
	Interval string
	Date     string
	Repeat   string
	Mask     string
	Visible  bool
}

func (a *wizardAnswers) form(cfgPath *string) *huh.Form {
	repeats := make([]huh.Option[string], 0, 4)
	for _, s := range []scheduler.Strategy{scheduler.Once, scheduler.Daily, scheduler.Forever, scheduler.Monthly} {
		repeats = append(repeats, huh.NewOption(s.String(), s.String()))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Configuration file").
				Value(cfgPath).
				Validate(notBlank),
			huh.NewInput().
				Title("Path to delete").
				Value(&a.Path).
				Validate(notBlank),
			huh.NewSelect[string]().
				Title("Trigger").
				Options(
					huh.NewOption("After an interval", triggerInterval),
					huh.NewOption("At a date", triggerDate),
				).
				Value(&a.Trigger),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Interval in minutes").
				Value(&a.Interval).
				Validate(validInterval),
		).WithHideFunc(func() bool { return a.Trigger != triggerInterval }),
		huh.NewGroup(
			huh.NewInput().
				Title("Date").
				Placeholder("2026-12-31 23:00").
				Value(&a.Date).
				Validate(validDate),
		).WithHideFunc(func() bool { return a.Trigger != triggerDate }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Repeat").
				Options(repeats...).
				Value(&a.Repeat),
			huh.NewInput().
				Title("Mask").
				Description("Glob of the files to delete inside a directory. Leave empty to delete the path itself.").
				Value(&a.Mask),
			huh.NewConfirm().
				Title("Show the path next to the progress bar?").
				Value(&a.Visible),
		),
	)
}

// definition converts the answers into a validated task definition.
func (a wizardAnswers) definition() (task.Definition, error) {
	def := task.Definition{
		Path:    strings.TrimSpace(a.Path),
		Mask:    strings.TrimSpace(a.Mask),
		Visible: a.Visible,
	}
	if err := def.Repeat.UnmarshalText([]byte(a.Repeat)); err != nil {
		return task.Definition{}, err
	}

	switch a.Trigger {
	case triggerInterval:
		n, err := parseInterval(a.Interval)
		if err != nil {
			return task.Definition{}, err
		}
		def.Interval = n
	case triggerDate:
		d, err := task.ParseDate(a.Date)
		if err != nil {
			return task.Definition{}, err
		}
		def.Date = d
	default:
		return task.Definition{}, fmt.Errorf("unknown trigger %q", a.Trigger)
	}

	if err := def.Validate(); err != nil {
		return task.Definition{}, err
	}
	return def, nil
}

func notBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validInterval(s string) error {
	_, err := parseInterval(s)
	return err
}

func validDate(s string) error {
	_, err := task.ParseDate(s)
	return err
}

func parseInterval(s string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("interval must be a whole number of minutes above zero, got %q", s)
	}
	return uint32(n), nil
}
