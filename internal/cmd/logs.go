package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/jdecomp/internal/config"
	"github.com/Iron-Ham/jdecomp/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the debug log",
	Long: `View and filter the jdecomp debug log.

Every decompilation request is logged with a request ID and the class
name, so one request can be followed from validation to result.

Examples:
  # Show the last 50 lines
  jdecomp logs

  # Everything logged for one class
  jdecomp logs --class com.foo.Bar -n 0

  # Follow logs in real-time
  jdecomp logs -f

  # Warnings and errors from the last hour
  jdecomp logs --level warn --since 1h

  # Search for specific patterns
  jdecomp logs --grep "timeout|exit_code"`,
	RunE: runLogs,
}

var (
	logsTail    int
	logsFollow  bool
	logsLevel   string
	logsSince   string
	logsGrep    string
	logsRequest string
	logsClass   string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsRequest, "request", "", "Only entries for this request ID (prefix match)")
	logsCmd.Flags().StringVar(&logsClass, "class", "", "Only entries for this class")
}

// logEntry represents a parsed JSON log line
type logEntry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	RequestID string         `json:"request_id,omitempty"`
	Class     string         `json:"class,omitempty"`
	Component string         `json:"component,omitempty"`
	Extra     map[string]any `json:"-"` // Captures additional fields
}

// UnmarshalJSON implements custom unmarshaling to capture extra fields
func (e *logEntry) UnmarshalJSON(data []byte) error {
	// First, unmarshal known fields using a type alias to avoid recursion
	type Alias logEntry
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	// Then unmarshal all fields to capture extras
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	// Remove known fields, keep the rest as extra
	for _, known := range []string{"time", "level", "msg", "request_id", "class", "component"} {
		delete(all, known)
	}

	if len(all) > 0 {
		e.Extra = all
	}

	return nil
}

// logFilter selects log entries.
type logFilter struct {
	minLevel int
	since    time.Time
	grep     *regexp.Regexp
	request  string
	class    string
}

var (
	logTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	logFieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	logLevelStyle = map[string]lipgloss.Style{
		logging.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		logging.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		logging.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		logging.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// formatLogEntry renders one entry as a single terminal line.
func formatLogEntry(entry *logEntry) string {
	level := strings.ToUpper(entry.Level)
	parts := []string{
		logTimeStyle.Render("[" + entry.Time.Format("15:04:05.000") + "]"),
		logLevelStyle[level].Render("[" + level + "]"),
		entry.Msg,
	}
	writeField := func(key, value string) {
		parts = append(parts, logFieldStyle.Render(key+"=")+value)
	}

	// Request context; IDs are shortened the way git shortens hashes.
	if entry.Class != "" {
		writeField("class", entry.Class)
	}
	if entry.RequestID != "" {
		id := entry.RequestID
		if len(id) > 8 {
			id = id[:8]
		}
		writeField("request", id)
	}
	if entry.Component != "" {
		writeField("component", entry.Component)
	}

	// Extra fields, sorted for stable output
	keys := make([]string, 0, len(entry.Extra))
	for key := range entry.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		writeField(key, fmt.Sprintf("%v", entry.Extra[key]))
	}

	return strings.Join(parts, " ")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logPath := filepath.Join(cfg.Logging.ResolveDirectory(), logging.LogFileName)
	out := cmd.OutOrStdout()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No logs found.")
		fmt.Fprintln(out, "Logs are stored at:", logPath)
		return nil
	}

	filter, err := newLogFilter(logsLevel, logsSince, logsGrep, logsRequest, logsClass)
	if err != nil {
		return err
	}

	// Follow mode
	if logsFollow {
		ctx, stop := notifyContext(cmd.Context())
		defer stop()
		return followLogs(ctx, out, logPath, filter)
	}

	// Non-follow mode: read and display logs
	return displayLogs(out, logPath, logsTail, filter)
}

func newLogFilter(level, since, grep, request, class string) (logFilter, error) {
	f := logFilter{minLevel: -1, request: request, class: class}

	if level != "" {
		if !slices.Contains(logging.ValidLevels(), strings.ToUpper(level)) {
			return f, fmt.Errorf("invalid level %q: must be one of debug, info, warn, error", level)
		}
		f.minLevel = logging.LevelPriority(logging.ParseLevel(level))
	}

	if since != "" {
		duration, err := time.ParseDuration(since)
		if err != nil {
			return f, fmt.Errorf("invalid duration format: %w", err)
		}
		f.since = time.Now().Add(-duration)
	}

	if grep != "" {
		re, err := regexp.Compile(grep)
		if err != nil {
			return f, fmt.Errorf("invalid grep pattern: %w", err)
		}
		f.grep = re
	}
	return f, nil
}

// render turns one raw log line into display text. Lines that are not JSON
// are shown as they are; filtered-out entries report false.
func (f logFilter) render(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	var entry logEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line, true
	}
	if !f.passes(&entry) {
		return "", false
	}
	return formatLogEntry(&entry), true
}

// displayLogs prints the filtered entries of the log file, keeping only the
// last tail of them when tail is positive.
func displayLogs(out io.Writer, logPath string, tail int, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if text, ok := filter.render(scanner.Text()); ok {
			lines = append(lines, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	if len(lines) == 0 {
		fmt.Fprintln(out, "No matching log entries found.")
		return nil
	}
	for _, text := range lines {
		fmt.Fprintln(out, text)
	}
	return nil
}

// followLogs prints entries appended to the log file until ctx is done.
func followLogs(ctx context.Context, out io.Writer, logPath string, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}
	fmt.Fprintf(out, "Following logs... (Ctrl+C to stop)\n\n")

	reader := bufio.NewReader(file)
	var pending strings.Builder
	for {
		chunk, err := reader.ReadString('\n')
		pending.WriteString(chunk)
		switch {
		case err == io.EOF:
			// A line the logger is still writing stays pending.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		case err != nil:
			return fmt.Errorf("error reading log file: %w", err)
		}
		if text, ok := filter.render(pending.String()); ok {
			fmt.Fprintln(out, text)
		}
		pending.Reset()
	}
}

// passes checks if a log entry passes all filter criteria
func (f logFilter) passes(entry *logEntry) bool {
	// Level filter
	if f.minLevel >= 0 && logging.LevelPriority(strings.ToUpper(entry.Level)) < f.minLevel {
		return false
	}

	// Time filter
	if !f.since.IsZero() && entry.Time.Before(f.since) {
		return false
	}

	if f.request != "" && !strings.HasPrefix(entry.RequestID, f.request) {
		return false
	}
	if f.class != "" && entry.Class != f.class {
		return false
	}

	// Grep filter - search in message and extra fields
	if f.grep != nil {
		searchText := entry.Msg
		for _, v := range entry.Extra {
			searchText += " " + fmt.Sprintf("%v", v)
		}
		if !f.grep.MatchString(searchText) {
			return false
		}
	}

	return true
}
