package adapters

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"xpkg/internal/ports"
)

const lockFileName = "xpkg.lock"

// LockFileAdapter serialises transactions on one package database with
// an exclusively created lock file holding the owner's pid. A lock whose
// owner is no longer running is taken over, so an interrupted run can be
// resumed by running it again.
type LockFileAdapter struct {
	Path string
}

func NewLockFileAdapter(dbDir string) LockFileAdapter {
	return LockFileAdapter{Path: filepath.Join(dbDir, lockFileName)}
}

func (a LockFileAdapter) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create package database directory").
			WithCause(err)
	}
	err := a.create()
	if err == nil || !os.IsExist(err) {
		return a.createError(err)
	}
	pid, ok := a.owner()
	if !ok || processAlive(pid) {
		return errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg(fmt.Sprintf("package database is locked (%s)", a.Path)).
			WithCause(err)
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to remove stale lock held by pid %d", pid)).
			WithCause(err)
	}
	return a.createError(a.create())
}

func (a LockFileAdapter) Release() error {
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to remove lock file").
			WithCause(err)
	}
	return nil
}

func (a LockFileAdapter) create() error {
	file, err := os.OpenFile(a.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		_ = os.Remove(a.Path)
		return err
	}
	return nil
}

func (a LockFileAdapter) createError(err error) error {
	if err == nil {
		return nil
	}
	if os.IsExist(err) {
		return errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg(fmt.Sprintf("package database is locked (%s)", a.Path)).
			WithCause(err)
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to create lock file").
		WithCause(err)
}

// owner reads the pid recorded in the lock. A lock without a readable
// pid is treated as held.
func (a LockFileAdapter) owner() (int, bool) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

var _ ports.LockPort = LockFileAdapter{}
