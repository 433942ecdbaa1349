package decompile

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/jdecomp/internal/classfile"
	"github.com/Iron-Ham/jdecomp/internal/errors"
	"github.com/Iron-Ham/jdecomp/internal/util"
)

// Target identifies one class to decompile.
type Target struct {
	// ClassName is the fully qualified binary name, e.g. "com.foo.Outer$Inner".
	ClassName string
	// ClassFile is the class file on disk. Empty for archive targets until
	// the entry is extracted.
	ClassFile string
	// Archive and Entry locate the class inside a jar or zip.
	Archive string
	Entry   string
	// JavaVersion is the Java release the class was compiled for, 0 if
	// unknown.
	JavaVersion int
}

// Package returns the class's package. Classes in the default package
// report ok == false.
func (t Target) Package() (string, bool) {
	idx := strings.LastIndexByte(t.ClassName, '.')
	if idx < 0 {
		return "", false
	}
	return t.ClassName[:idx], true
}

// SimpleName returns the class name without its package.
func (t Target) SimpleName() string {
	return t.ClassName[strings.LastIndexByte(t.ClassName, '.')+1:]
}

// IsArchived reports whether the class lives inside an archive.
func (t Target) IsArchived() bool {
	return t.Archive != ""
}

// Source describes where the class came from, for messages.
func (t Target) Source() string {
	if t.IsArchived() {
		return t.Archive + "!/" + t.Entry
	}
	return t.ClassFile
}

// String returns the class name.
func (t Target) String() string {
	return t.ClassName
}

// OutputPath returns where the source of t is written below root:
// <root>/<package dirs>/<SimpleName>.<ext>.
func (t Target) OutputPath(root, ext string) string {
	pkg, _ := t.Package()
	return filepath.Join(root, filepath.FromSlash(util.PackageDir(pkg)), t.SimpleName()+"."+ext)
}

// TargetFromClassFile reads the class name from the file's header. A nested
// class is replaced by its outer class when the outer class file sits next
// to it, since the decompiler emits nested classes inside their outer
// class's source.
func TargetFromClassFile(fsys afero.Fs, path string) (Target, error) {
	info, err := classfile.ParseFile(fsys, path)
	if err != nil {
		return Target{}, err
	}
	if info.IsNested() {
		outer := info.OuterName()
		outerFile := filepath.Join(filepath.Dir(path), outer[strings.LastIndexByte(outer, '.')+1:]+".class")
		if outerInfo, err := classfile.ParseFile(fsys, outerFile); err == nil && outerInfo.Name == outer {
			return Target{ClassName: outer, ClassFile: outerFile, JavaVersion: outerInfo.JavaVersion()}, nil
		}
	}
	return Target{ClassName: info.Name, ClassFile: path, JavaVersion: info.JavaVersion()}, nil
}

// Matcher selects class files by slash-separated relative path.
type Matcher struct {
	globs []glob.Glob
}

// NewMatcher compiles patterns. With no patterns every .class file matches.
// Nested classes ("Outer$Inner.class") never match: the decompiler picks
// them up when it processes the outer class.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether rel is selected.
func (m *Matcher) Match(rel string) bool {
	rel = strings.TrimPrefix(util.NormalizePath(rel), "/")
	base := path.Base(rel)
	if !strings.HasSuffix(base, ".class") || strings.Contains(base, "$") {
		return false
	}
	if len(m.globs) == 0 {
		return true
	}
	for _, g := range m.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// TargetsFromDir walks root and returns a target for every matching class
// file, sorted by class name. Files that are not valid class files are
// reported through skipped and left out.
func TargetsFromDir(fsys afero.Fs, root string, m *Matcher, skipped func(path string, err error)) ([]Target, error) {
	var targets []Target
	err := afero.Walk(fsys, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if !m.Match(rel) {
			return nil
		}
		t, err := TargetFromClassFile(fsys, p)
		if err != nil {
			if skipped != nil {
				skipped(p, err)
			}
			return nil
		}
		targets = append(targets, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortTargets(targets)
	return targets, nil
}

// TargetsFromArchive lists the matching classes of a jar or zip. Class
// names come from each entry's header, not from its path.
func TargetsFromArchive(fsys afero.Fs, archive string, m *Matcher) ([]Target, error) {
	zr, closeFn, err := openArchive(fsys, archive)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var targets []Target
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !m.Match(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "%s!/%s", archive, f.Name)
		}
		info, err := classfile.Parse(rc)
		_ = rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "%s!/%s", archive, f.Name)
		}
		targets = append(targets, Target{ClassName: info.Name, Archive: archive, Entry: f.Name, JavaVersion: info.JavaVersion()})
	}
	sortTargets(targets)
	return targets, nil
}

func sortTargets(targets []Target) {
	sort.Slice(targets, func(i, j int) bool { return targets[i].ClassName < targets[j].ClassName })
}

func openArchive(fsys afero.Fs, archive string) (*zip.Reader, func(), error) {
	f, err := fsys.Open(archive)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s: %w", archive, err)
	}
	return zr, func() { _ = f.Close() }, nil
}
