// Package testutil provides testing utilities for jdecomp tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// ClassBytes returns a minimal but well-formed class file declaring the
// class with the given dotted binary name. The constant pool also carries a
// Long and a String so parsers must handle two-slot and skipped entries.
func ClassBytes(name string) []byte {
	var b bytes.Buffer
	u1 := func(v uint8) { b.WriteByte(v) }
	u2 := func(v uint16) { _ = binary.Write(&b, binary.BigEndian, v) }
	utf8 := func(s string) {
		u1(1)
		u2(uint16(len(s)))
		b.WriteString(s)
	}

	_ = binary.Write(&b, binary.BigEndian, uint32(0xCAFEBABE))
	u2(0)  // minor
	u2(52) // major: Java 8

	// #1 Long (takes #1 and #2), #3 Utf8 this, #4 Class this,
	// #5 Utf8 super, #6 Class super, #7 String -> #3
	u2(8)
	u1(5)
	b.Write(make([]byte, 8))
	utf8(strings.ReplaceAll(name, ".", "/"))
	u1(7)
	u2(3)
	utf8("java/lang/Object")
	u1(7)
	u2(5)
	u1(8)
	u2(3)

	u2(0x0021) // public super
	u2(4)      // this_class
	u2(6)      // super_class
	u2(0)      // interfaces
	u2(0)      // fields
	u2(0)      // methods
	u2(0)      // attributes
	return b.Bytes()
}

// WriteClass writes ClassBytes(name) to dir using the package directory
// layout (com.foo.Bar -> dir/com/foo/Bar.class) and returns the path.
func WriteClass(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))+".class")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create class dir: %v", err)
	}
	if err := os.WriteFile(path, ClassBytes(name), 0644); err != nil {
		t.Fatalf("failed to write class: %v", err)
	}
	return path
}

// WriteJar writes a zip archive at path holding the given entries.
func WriteJar(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish jar: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write jar: %v", err)
	}
}

// WriteScript writes an executable POSIX shell script and returns its path.
// Tests using it are skipped on Windows.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	SkipIfWindows(t)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

// SkipIfWindows skips tests that rely on sh.
func SkipIfWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}
