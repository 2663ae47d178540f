// Package archive unpacks downloaded zip archives into the work directory.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for a member whose name escapes the target directory.
var ErrUnsafePath = errors.New("archive member escapes target directory")

type Extractor struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{log: log}
}

// Extract writes every file member of the zip at archive into dir. Members
// already present in dir are left untouched. It returns the paths written.
func (x *Extractor) Extract(ctx context.Context, archive, dir string) ([]string, error) {
	zr, err := zip.OpenReader(archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		zr.Close()
		return nil, fmt.Errorf("%s: %w", archive, ErrUnsafePath)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", archive, err)
	}
	defer zr.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		dst, err := memberPath(root, f.Name)
		if err != nil {
			return written, fmt.Errorf("%s: %w", archive, err)
		}
		if _, err := os.Stat(dst); err == nil {
			x.log.Debug("already extracted", "file", f.Name)
			continue
		}

		x.log.Info("extracting", "file", f.Name, "archive", filepath.Base(archive))
		if err := writeMember(f, dst); err != nil {
			return written, fmt.Errorf("extract %s from %s: %w", f.Name, archive, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

// Cleanup removes the archives. A missing file is not an error.
func (x *Extractor) Cleanup(archives []string) error {
	var errs []error
	for _, a := range archives {
		if err := os.Remove(a); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		x.log.Debug("removed archive", "file", a)
	}
	return errors.Join(errs...)
}

func memberPath(root, name string) (string, error) {
	dst := filepath.Join(root, filepath.FromSlash(name))
	if dst != root && !strings.HasPrefix(dst, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return dst, nil
}

func writeMember(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
