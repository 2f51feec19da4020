package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"xpkg/internal/ports"
	"xpkg/internal/shared"
)

const configureAction = "post"

// ScriptConfigurerAdapter runs the INSTALL script a package shipped, if
// any, with the "post" action.
type ScriptConfigurerAdapter struct {
	Root  string
	DBDir string
}

func NewScriptConfigurerAdapter(root string, dbDir string) ScriptConfigurerAdapter {
	return ScriptConfigurerAdapter{Root: root, DBDir: dbDir}
}

func (a ScriptConfigurerAdapter) Configure(ctx context.Context, name string, version string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	script := scriptPath(a.DBDir, name)
	info, err := os.Stat(script)
	if err != nil {
		if os.IsNotExist(err) {
			log.Ctx(ctx).Debug().Str("package", name+"-"+version).Msg("no install script")
			return nil
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stat install script").
			WithCause(err)
	}
	if info.IsDir() {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("install script for %s is a directory", name))
	}
	cmd := exec.CommandContext(ctx, script, configureAction, name, version)
	cmd.Dir = a.Root
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("install script failed for %s-%s", name, version)).
			WithCause(shared.CommandError(output, err))
	}
	log.Ctx(ctx).Debug().Str("package", name+"-"+version).Msg("install script ran")
	return nil
}

var _ ports.ConfigurerPort = ScriptConfigurerAdapter{}
