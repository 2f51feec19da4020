package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"xpkg/internal/app"
)

type installOptions struct {
	Force bool
}

func newInstallCommand() *cobra.Command {
	opts := installOptions{}
	cmd := &cobra.Command{
		Use:   "install <package>",
		Short: "Install a package and its dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), cmd, args[0], false, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Do not ask for confirmation")
	return cmd
}

func newUpdateCommand() *cobra.Command {
	opts := installOptions{}
	cmd := &cobra.Command{
		Use:   "update <package>",
		Short: "Update an installed package to the newest version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), cmd, args[0], true, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Do not ask for confirmation")
	return cmd
}

func runInstall(ctx context.Context, cmd *cobra.Command, name string, update bool, opts installOptions) error {
	service := newAppService(cmd)
	result, err := service.InstallOrUpdate(ctx, app.InstallRequest{
		Name:   name,
		Force:  resolveBool(cmd, opts.Force, "force", "force"),
		Update: update,
	})
	if err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Str("package", name).Str("outcome", string(result.Outcome)).Strs("packages", result.Packages).Msg("transaction finished")
	return nil
}
