// Package command assembles the decompiler command line from configuration.
//
// The result is a single string handed to the host shell, not an argument
// vector. Configured paths and flags containing spaces must therefore be
// quoted by the user; only the class file appended by ForTarget is quoted
// here.
package command

import (
	"runtime"
	"slices"
	"strings"

	"github.com/Iron-Ham/jdecomp/internal/config"
	"github.com/Iron-Ham/jdecomp/internal/util"
)

const (
	// StdoutFlag makes the decompiler write the source to standard output.
	StdoutFlag = "-p"
	// LineNumbersFlag makes the decompiler emit original line numbers as comments.
	LineNumbersFlag = "-lnc"
)

// Build renders "<path> <properties...> -p", appending -lnc when the
// debuggable reformat style is selected and the line has no -lnc token yet.
func Build(cfg *config.Config) string {
	parts := make([]string, 0, len(cfg.Decompiler.Properties)+3)
	parts = append(parts, cfg.Decompiler.Path)
	for _, p := range cfg.Decompiler.Properties {
		if frag := RenderProperty(p); frag != "" {
			parts = append(parts, frag)
		}
	}
	parts = append(parts, StdoutFlag)

	if cfg.Decompiler.ReformatStyle == config.StyleDebuggable && !HasFlag(parts, LineNumbersFlag) {
		parts = append(parts, LineNumbersFlag)
	}
	return strings.Join(parts, " ")
}

// RenderProperty renders one property as "-flag", "-flag value" or, when
// attached, "-flagvalue". Disabled properties render as "".
func RenderProperty(p config.Property) string {
	if p.Disabled {
		return ""
	}
	flag := strings.TrimPrefix(strings.TrimSpace(p.Flag), "-")
	if flag == "" {
		return ""
	}
	switch {
	case p.Value == "":
		return "-" + flag
	case p.Attached:
		return "-" + flag + p.Value
	default:
		return "-" + flag + " " + p.Value
	}
}

// HasFlag reports whether any whitespace-separated token in fragments equals
// flag. Fragments may hold several tokens each.
func HasFlag(fragments []string, flag string) bool {
	for _, frag := range fragments {
		if slices.Contains(strings.Fields(frag), flag) {
			return true
		}
	}
	return false
}

// ForTarget appends the quoted class file path to a built command line.
func ForTarget(cmdline, classFile string) string {
	return cmdline + " " + Quote(classFile)
}

// Quote quotes s for the host shell.
func Quote(s string) string {
	if runtime.GOOS == "windows" {
		return util.WindowsQuote(s)
	}
	return util.ShellQuote(s)
}

// Shell returns the program and arguments that run cmdline through the
// host shell.
func Shell(cmdline string) (name string, args []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", cmdline}
	}
	return "sh", []string{"-c", cmdline}
}
