// Package classfile reads the identity of a compiled Java class from its
// header: the class name, super class and format version.
//
// Only the constant pool and the three u2 fields that follow it are parsed.
// Fields, methods and attributes are never read.
package classfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/jdecomp/internal/errors"
)

// Magic is the first four bytes of every class file.
const Magic = 0xCAFEBABE

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// AccPublic and friends are access flags of the class itself.
const (
	AccPublic     = 0x0001
	AccFinal      = 0x0010
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
	AccModule     = 0x8000
)

// ErrNotClassFile is returned when the magic number does not match.
var ErrNotClassFile = errors.New("not a class file")

// Info identifies a class.
type Info struct {
	// Name is the fully qualified binary name with dots, e.g. "com.foo.Outer$Inner".
	Name string
	// SuperName is empty for java.lang.Object and module-info.
	SuperName   string
	Major       uint16
	Minor       uint16
	AccessFlags uint16
}

// Package returns the package part of Name, "" for the default package.
func (i *Info) Package() string {
	if idx := strings.LastIndexByte(i.Name, '.'); idx >= 0 {
		return i.Name[:idx]
	}
	return ""
}

// SimpleName returns Name without its package. Nested classes keep their
// outer class prefix ("Outer$Inner").
func (i *Info) SimpleName() string {
	return i.Name[strings.LastIndexByte(i.Name, '.')+1:]
}

// OuterName returns the top-level class name for nested classes and Name
// otherwise.
func (i *Info) OuterName() string {
	simple := i.SimpleName()
	idx := strings.IndexByte(simple, '$')
	if idx <= 0 {
		return i.Name
	}
	return strings.TrimSuffix(i.Name, simple) + simple[:idx]
}

// IsNested reports whether the class is a nested or anonymous class.
func (i *Info) IsNested() bool {
	return i.OuterName() != i.Name
}

// JavaVersion maps the major version to the Java release that produced it
// (52 -> 8, 61 -> 17). Versions before Java 5 report 0.
func (i *Info) JavaVersion() int {
	if i.Major < 49 {
		return 0
	}
	return int(i.Major) - 44
}

type reader struct {
	r   *bufio.Reader
	buf [8]byte
}

func (r *reader) u1() (uint8, error) {
	return r.r.ReadByte()
}

func (r *reader) u2() (uint16, error) {
	if _, err := io.ReadFull(r.r, r.buf[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r.buf[:2]), nil
}

func (r *reader) u4() (uint32, error) {
	if _, err := io.ReadFull(r.r, r.buf[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(r.buf[:4]), nil
}

func (r *reader) skip(n int) error {
	_, err := r.r.Discard(n)
	return err
}

// Parse reads a class header from src.
func Parse(src io.Reader) (*Info, error) {
	r := &reader{r: bufio.NewReader(src)}

	magic, err := r.u4()
	if err != nil {
		return nil, fmt.Errorf("reading magic: %w", truncated(err))
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: magic %#x", ErrNotClassFile, magic)
	}

	info := &Info{}
	if info.Minor, err = r.u2(); err != nil {
		return nil, fmt.Errorf("reading version: %w", truncated(err))
	}
	if info.Major, err = r.u2(); err != nil {
		return nil, fmt.Errorf("reading version: %w", truncated(err))
	}

	count, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading constant pool count: %w", truncated(err))
	}

	// Index 0 is unused; Long and Double take two slots.
	utf8 := make(map[uint16]string)
	classes := make(map[uint16]uint16)
	for idx := uint16(1); idx < count; idx++ {
		tag, err := r.u1()
		if err != nil {
			return nil, fmt.Errorf("reading constant %d: %w", idx, truncated(err))
		}
		switch tag {
		case tagUtf8:
			n, err := r.u2()
			if err != nil {
				return nil, fmt.Errorf("reading constant %d: %w", idx, truncated(err))
			}
			b := make([]byte, n)
			if _, err := io.ReadFull(r.r, b); err != nil {
				return nil, fmt.Errorf("reading constant %d: %w", idx, truncated(err))
			}
			utf8[idx] = string(b)
		case tagClass:
			nameIdx, err := r.u2()
			if err != nil {
				return nil, fmt.Errorf("reading constant %d: %w", idx, truncated(err))
			}
			classes[idx] = nameIdx
		case tagString, tagMethodType, tagModule, tagPackage:
			err = r.skip(2)
		case tagMethodHandle:
			err = r.skip(3)
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			err = r.skip(4)
		case tagLong, tagDouble:
			err = r.skip(8)
			idx++
		default:
			return nil, fmt.Errorf("constant %d: unknown tag %d", idx, tag)
		}
		if err != nil {
			return nil, fmt.Errorf("reading constant %d: %w", idx, truncated(err))
		}
	}

	if info.AccessFlags, err = r.u2(); err != nil {
		return nil, fmt.Errorf("reading access flags: %w", truncated(err))
	}
	thisIdx, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading this_class: %w", truncated(err))
	}
	superIdx, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading super_class: %w", truncated(err))
	}

	name, ok := className(thisIdx, classes, utf8)
	if !ok {
		return nil, fmt.Errorf("this_class %d does not name a class", thisIdx)
	}
	info.Name = name
	if superIdx != 0 {
		if super, ok := className(superIdx, classes, utf8); ok {
			info.SuperName = super
		}
	}
	return info, nil
}

// ParseFile parses the class file at path on fs.
func ParseFile(fs afero.Fs, path string) (*Info, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

func className(idx uint16, classes map[uint16]uint16, utf8 map[uint16]string) (string, bool) {
	nameIdx, ok := classes[idx]
	if !ok {
		return "", false
	}
	internal, ok := utf8[nameIdx]
	if !ok || internal == "" {
		return "", false
	}
	return strings.ReplaceAll(internal, "/", "."), true
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
