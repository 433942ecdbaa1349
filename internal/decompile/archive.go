package decompile

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/jdecomp/internal/util"
)

// extractClass copies the target's entry, plus the entries of its nested
// classes, from the archive into dir keeping the package layout. It returns
// the path of the extracted outer class file.
func extractClass(fsys afero.Fs, t Target, dir string) (string, error) {
	zr, closeFn, err := openArchive(fsys, t.Archive)
	if err != nil {
		return "", err
	}
	defer closeFn()

	entry := util.NormalizePath(t.Entry)
	nestedPrefix := strings.TrimSuffix(entry, ".class") + "$"

	var classPath string
	for _, f := range zr.File {
		name := util.NormalizePath(f.Name)
		if name != entry && !(strings.HasPrefix(name, nestedPrefix) && strings.HasSuffix(name, ".class")) {
			continue
		}
		// Entry names come from the archive; refuse anything escaping dir.
		clean := path.Clean("/" + name)[1:]
		if clean == "" || clean != name {
			return "", fmt.Errorf("unsafe entry name %q", f.Name)
		}
		dst := filepath.Join(dir, filepath.FromSlash(clean))
		if err := fsys.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return "", err
		}
		if err := copyEntry(fsys, f.Open, dst); err != nil {
			return "", fmt.Errorf("%s: %w", f.Name, err)
		}
		if name == entry {
			classPath = dst
		}
	}
	if classPath == "" {
		return "", fmt.Errorf("entry %s not found", t.Entry)
	}
	return classPath, nil
}

func copyEntry(fsys afero.Fs, open func() (io.ReadCloser, error), dst string) error {
	rc, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := fsys.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
