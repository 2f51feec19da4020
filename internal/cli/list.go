package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), cmd)
		},
	}
}

func runList(ctx context.Context, cmd *cobra.Command) error {
	service := newAppService(cmd)
	result, err := service.ListInstalled(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(result.Packages) == 0 {
		fmt.Fprintln(out, "No packages currently installed.")
		return nil
	}
	for _, pkg := range result.Packages {
		line := fmt.Sprintf("%s-%s %s", pkg.Name, pkg.Version, pkg.State)
		if !pkg.InstalledAt.IsZero() {
			line += " " + pkg.InstalledAt.Format(time.DateOnly)
		}
		if pkg.Automatic {
			line += " (automatic)"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
