package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flemzord/deltime/internal/daemon"
	"github.com/flemzord/deltime/pkg/app"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage deltime as a system service",
	}
	cmd.PersistentFlags().Bool("user", false, "Use a per-user service where supported")

	for _, action := range daemon.Actions() {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the service", capitalize(action)),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(cmd)
				if err != nil {
					return err
				}
				if err := daemon.Control(svc, action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Print the service state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(cmd)
				if err != nil {
					return err
				}
				st, err := daemon.Status(svc)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), st)
				return nil
			},
		},
		&cobra.Command{
			Use:    "run",
			Short:  "Entry point used by the service manager",
			Hidden: true,
			Args:   cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(cmd)
				if err != nil {
					return err
				}
				return svc.Run()
			},
		},
	)
	return cmd
}

// newService builds the service from the command flags. The configuration
// path is made absolute since the manager starts the binary elsewhere.
func newService(cmd *cobra.Command) (service.Service, error) {
	params := baseParams(cmd)
	params.DisableSignals = true
	if params.ConfigPath != "" {
		abs, err := filepath.Abs(params.ConfigPath)
		if err != nil {
			return nil, err
		}
		params.ConfigPath = abs
	}
	user, _ := cmd.Flags().GetBool("user")

	run := func(ctx context.Context) error {
		return app.Run(ctx, params)
	}
	return daemon.New(run, daemon.Options{
		ConfigPath:  params.ConfigPath,
		UserService: user,
		Logger:      slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)),
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
