// Package linealign moves decompiled source lines back to their original
// line numbers.
//
// With -lnc the decompiler prefixes statements with a comment carrying the
// line they came from, e.g. "/*   42*/        return x;". Padding the output
// with blank lines so that such a statement lands on line 42 lets a
// debugger stepping through the original class show the right source.
package linealign

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strconv"

	"github.com/spf13/afero"
)

var marker = regexp.MustCompile(`^\s*/\*\s*(\d+)\s*\*/`)

// Stats summarizes an alignment pass.
type Stats struct {
	// Lines is the number of lines written, padding included.
	Lines int
	// Inserted is the number of blank lines added.
	Inserted int
	// Late counts marked lines that could not be moved because output had
	// already passed their line number.
	Late int
}

// LineNumber returns the original line number carried by line, if any.
func LineNumber(line string) (int, bool) {
	m := marker.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Align copies r to w, inserting blank lines before every marked line whose
// original number is ahead of the current output line. Lines are never
// reordered or dropped.
func Align(r io.Reader, w io.Writer) (Stats, error) {
	var st Stats
	bw := bufio.NewWriter(w)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for sc.Scan() {
		line := sc.Text()
		if n, ok := LineNumber(line); ok {
			switch {
			case n > st.Lines+1:
				for st.Lines+1 < n {
					if err := bw.WriteByte('\n'); err != nil {
						return st, err
					}
					st.Lines++
					st.Inserted++
				}
			case n < st.Lines+1:
				st.Late++
			}
		}
		if _, err := bw.WriteString(line); err != nil {
			return st, err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return st, err
		}
		st.Lines++
	}
	if err := sc.Err(); err != nil {
		return st, err
	}
	return st, bw.Flush()
}

// AlignFile rewrites the file at path on fs in place.
func AlignFile(fs afero.Fs, path string) (Stats, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Stats{}, err
	}
	var out bytes.Buffer
	st, err := Align(bytes.NewReader(data), &out)
	if err != nil {
		return st, err
	}
	info, err := fs.Stat(path)
	if err != nil {
		return st, err
	}
	return st, afero.WriteFile(fs, path, out.Bytes(), info.Mode().Perm())
}
