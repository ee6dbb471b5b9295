// Package atomicfile replaces files whole or not at all.
package atomicfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// Perm is the mode requested for written files, before the umask.
const Perm os.FileMode = 0o666

// Write streams into a pending file next to path and renames it over path once write succeeds.
// On any failure path is left as it was and the pending file is removed.
func Write(path string, write func(w io.Writer) error) error {
	pf, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(filepath.Dir(path)),
		renameio.WithPermissions(Perm))
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		// No-op once replaced.
		_ = pf.Cleanup()
	}()

	if err := write(pf); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
