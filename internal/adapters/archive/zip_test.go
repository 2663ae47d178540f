package archive_test

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/cps-dct/internal/adapters/archive"
)

func makeZip(t *testing.T, dir, name string, members map[string]string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for n, body := range members {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = io.WriteString(w, body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestExtract(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	z := makeZip(t, src, "jan15pub.zip", map[string]string{
		"jan15pub.dat":    "record",
		"docs/readme.txt": "hi",
	})

	x := archive.New(quiet())
	written, err := x.Extract(context.Background(), z, dst)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dst, "jan15pub.dat"),
		filepath.Join(dst, "docs", "readme.txt"),
	}, written)

	b, err := os.ReadFile(filepath.Join(dst, "jan15pub.dat"))
	require.NoError(t, err)
	assert.Equal(t, "record", string(b))
}

func TestExtract_SkipsExisting(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dst, "jan15pub.dat"), []byte("mine"), 0o644))
	z := makeZip(t, src, "jan15pub.zip", map[string]string{"jan15pub.dat": "theirs"})

	written, err := archive.New(quiet()).Extract(context.Background(), z, dst)
	require.NoError(t, err)
	assert.Empty(t, written)

	b, _ := os.ReadFile(filepath.Join(dst, "jan15pub.dat"))
	assert.Equal(t, "mine", string(b))
}

func TestExtract_RejectsPathTraversal(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	z := makeZip(t, src, "evil.zip", map[string]string{"../escape.txt": "x"})

	_, err := archive.New(quiet()).Extract(context.Background(), z, dst)
	require.ErrorIs(t, err, archive.ErrUnsafePath)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(dst), "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtract_NotAZip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(p, []byte("not a zip"), 0o644))
	_, err := archive.New(quiet()).Extract(context.Background(), p, t.TempDir())
	require.Error(t, err)
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	a := makeZip(t, dir, "a.zip", map[string]string{"a": "a"})
	missing := filepath.Join(dir, "gone.zip")

	require.NoError(t, archive.New(quiet()).Cleanup([]string{a, missing}))
	_, err := os.Stat(a)
	assert.True(t, os.IsNotExist(err))
}
