package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"xpkg/internal/app"
)

type autoUpdateOptions struct {
	Force bool
}

func newAutoUpdateCommand() *cobra.Command {
	opts := autoUpdateOptions{}
	cmd := &cobra.Command{
		Use:   "autoupdate",
		Short: "Update every installed package that has a newer version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAutoUpdate(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Do not ask for confirmation")
	return cmd
}

func runAutoUpdate(ctx context.Context, cmd *cobra.Command, opts autoUpdateOptions) error {
	service := newAppService(cmd)
	result, err := service.AutoUpdateAll(ctx, app.AutoUpdateRequest{
		Force: resolveBool(cmd, opts.Force, "force", "force"),
	})
	if err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Str("outcome", string(result.Outcome)).Strs("packages", result.Packages).Msg("fleet update finished")
	return nil
}
