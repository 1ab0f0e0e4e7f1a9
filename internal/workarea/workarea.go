// Package workarea manages the locked scratch directory a mastering run
// works inside. All intermediate artifacts (the sanitized source, chunk
// files, per-chunk pass outputs, the concat list) live under one Area so
// cleanup is a bounded, well-known tree.
package workarea

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// ErrBusy reports that another run holds the working area lock.
var ErrBusy = errors.New("working area is locked by another run")

const lockFileName = ".lacquer.lock"

// Area is a locked working directory for one mastering run.
type Area struct {
	root string
	lock *flock.Flock
}

// Open creates dir if needed and acquires its lock. A second Open on the
// same directory fails with ErrBusy until the first Area is closed.
func Open(dir string) (*Area, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("working directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire working area lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, dir)
	}

	return &Area{root: dir, lock: lock}, nil
}

// Root returns the absolute working directory path.
func (a *Area) Root() string {
	return a.root
}

// Join resolves parts relative to the area root.
func (a *Area) Join(parts ...string) string {
	return filepath.Join(append([]string{a.root}, parts...)...)
}

// MkdirAll creates a nested directory under the root and returns its path.
func (a *Area) MkdirAll(parts ...string) (string, error) {
	path := a.Join(parts...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	return path, nil
}

// WriteFile writes data to name under the root and returns the full path.
func (a *Area) WriteFile(name string, data []byte) (string, error) {
	path := a.Join(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ReadFile reads name under the root.
func (a *Area) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(a.Join(name))
}

// Stat stats name under the root.
func (a *Area) Stat(name string) (os.FileInfo, error) {
	return os.Stat(a.Join(name))
}

// Remove deletes name under the root. A missing file is not an error so
// cleanup paths can run unconditionally.
func (a *Area) Remove(name string) error {
	err := os.Remove(a.Join(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveAll deletes a subtree under the root.
func (a *Area) RemoveAll(parts ...string) error {
	return os.RemoveAll(a.Join(parts...))
}

// List returns the paths matching pattern relative to the root, in
// lexical order.
func (a *Area) List(pattern string) ([]string, error) {
	matches, err := filepath.Glob(a.Join(pattern))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", pattern, err)
	}
	return matches, nil
}

// CopyIn streams src into the area under name with size and SHA256
// verification, removing the partial copy on mismatch.
func (a *Area) CopyIn(src, name string) (string, error) {
	dst := a.Join(name)
	if err := copyVerified(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// Export streams name out of the area to dest with the same verification
// as CopyIn, creating the destination directory as needed.
func (a *Area) Export(name, dest string) (string, error) {
	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create destination directory: %w", err)
		}
	}
	if err := copyVerified(a.Join(name), dest); err != nil {
		return "", err
	}
	return dest, nil
}

func copyVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}

	return nil
}

// Close releases the working area lock. Safe to call more than once.
func (a *Area) Close() error {
	if a.lock == nil {
		return nil
	}
	err := a.lock.Unlock()
	a.lock = nil
	return err
}
