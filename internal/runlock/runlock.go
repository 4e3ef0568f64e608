// Package runlock keeps two runs from renaming inside the same tree at once.
package runlock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another run holds the lock
var ErrLocked = errors.New("another mvsync run is using this tree")

type Lock struct {
	flock *flock.Flock
}

// Path returns the lock file guarding root, inside dir
func Path(dir, root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(dir, "mvsync-"+hex.EncodeToString(sum[:])[:16]+".lock"), nil
}

// Acquire takes the lock for root without waiting
func Acquire(root string) (*Lock, error) {
	return AcquireIn(os.TempDir(), root)
}

func AcquireIn(dir, root string) (*Lock, error) {
	filename, err := Path(dir, root)
	if err != nil {
		return nil, err
	}

	locker := flock.New(filename)
	ok, err := locker.TryLock()
	if err != nil {
		_ = locker.Close()
		return nil, fmt.Errorf("lock %s: %w", filename, err)
	}
	if !ok {
		_ = locker.Close()
		return nil, fmt.Errorf("%w: %s", ErrLocked, filename)
	}

	return &Lock{flock: locker}, nil
}

// Release unlocks. The lock file is left behind for the next run.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	return l.flock.Close()
}
