package util

import "strings"

// NormalizePath converts platform path separators to forward slashes.
// The result is the canonical form used for archive entry names and
// package-to-directory mapping; it is not cleaned or made absolute.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// PackageDir maps a dotted package name to a slash-separated relative
// directory ("com.example.util" -> "com/example/util"). The default package
// maps to "".
func PackageDir(pkg string) string {
	if pkg == "" {
		return ""
	}
	return strings.ReplaceAll(pkg, ".", "/")
}

// ShellQuote quotes s for a POSIX shell. Strings without shell
// metacharacters are returned unchanged.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$&;|*?<>`()[]{}#~!") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// WindowsQuote quotes s for cmd.exe. Embedded double quotes are doubled.
func WindowsQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t&()[]{}^=;!'+,`~\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
