package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"xpkg/internal/app"
)

func newAppService(cmd *cobra.Command) app.Service {
	return app.NewService(app.Config{
		Root:         viper.GetString("root"),
		DBDir:        viper.GetString("db_dir"),
		Repositories: viper.GetStringSlice("repositories"),
		Essential:    viper.GetStringSlice("essential"),
		In:           cmd.InOrStdin(),
		Out:          cmd.OutOrStdout(),
	})
}
