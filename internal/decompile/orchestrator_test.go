package decompile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/jdecomp/internal/config"
	"github.com/Iron-Ham/jdecomp/internal/console"
	"github.com/Iron-Ham/jdecomp/internal/envcheck"
	"github.com/Iron-Ham/jdecomp/internal/errors"
	"github.com/Iron-Ham/jdecomp/internal/testutil"
)

// lastArg leaves the final argument, the class file, in $last.
const lastArg = `for last; do :; done`

type fixture struct {
	dir    string
	cfg    *config.Config
	sink   *console.Recorder
	target Target
}

// newFixture writes a decompiler script with the given body and a class
// com.foo.Bar, and points a default config at both.
func newFixture(t *testing.T, body string) *fixture {
	t.Helper()
	dir := t.TempDir()
	script := testutil.WriteScript(t, dir, "jad", body)
	classFile := testutil.WriteClass(t, filepath.Join(dir, "classes"), "com.foo.Bar")

	cfg := config.Default()
	cfg.Decompiler.Path = script
	cfg.Output.Directory = filepath.Join(dir, "out")
	cfg.Pump.DrainTimeoutMs = 500

	return &fixture{
		dir:    dir,
		cfg:    cfg,
		sink:   console.NewRecorder(),
		target: Target{ClassName: "com.foo.Bar", ClassFile: classFile},
	}
}

func (f *fixture) orchestrator(opts ...Option) *Orchestrator {
	opts = append([]Option{WithSink(f.sink), WithBaseDir(f.dir)}, opts...)
	return New(f.cfg, opts...)
}

func (f *fixture) outputFile() string {
	return filepath.Join(f.cfg.Output.Directory, "com", "foo", "Bar.java")
}

func TestDecompile_Success(t *testing.T) {
	f := newFixture(t, lastArg+`
echo "// from $last"
echo "package com.foo;"
echo "public class Bar {}"
echo "parsing $last" >&2`)

	res := f.orchestrator().Decompile(context.Background(), f.target)

	if !res.Succeeded() {
		t.Fatalf("Status = %v (code %q, err %v), want succeeded", res.Status, res.Code, res.Err)
	}
	if res.OutputFile != f.outputFile() {
		t.Errorf("OutputFile = %q, want %q", res.OutputFile, f.outputFile())
	}
	if res.RequestID == "" {
		t.Error("RequestID is empty")
	}
	if res.Target.ClassName != "com.foo.Bar" {
		t.Errorf("Target = %+v", res.Target)
	}

	data, err := os.ReadFile(res.OutputFile)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	want := "// from " + f.target.ClassFile + "\npackage com.foo;\npublic class Bar {}\n"
	if string(data) != want {
		t.Errorf("output = %q, want %q", data, want)
	}
	if _, err := os.Stat(res.OutputFile + partialSuffix); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}

	if res.Outcome == nil {
		t.Fatal("Outcome is nil")
	}
	if res.Outcome.ExitCode != 0 || res.Outcome.Killed {
		t.Errorf("Outcome = %+v", res.Outcome)
	}
	if res.Outcome.OutputBytes != int64(len(want)) {
		t.Errorf("OutputBytes = %d, want %d", res.Outcome.OutputBytes, len(want))
	}
	if !strings.Contains(res.Outcome.Stderr, "parsing") {
		t.Errorf("Stderr = %q, want the decompiler's diagnostics", res.Outcome.Stderr)
	}

	codes := f.sink.Codes()
	if len(codes) != 2 || codes[0] != console.CodeDecompiling || codes[1] != console.CodeDecompiled {
		t.Errorf("console codes = %v, want [%s %s]", codes, console.CodeDecompiling, console.CodeDecompiled)
	}
}

func TestDecompile_PassesConfiguredFlags(t *testing.T) {
	f := newFixture(t, `echo "args: $*"`)
	f.cfg.Decompiler.Properties = []config.Property{
		{Flag: "ff"},
		{Flag: "pi", Value: "10", Attached: true},
		{Flag: "space", Disabled: true},
	}

	res := f.orchestrator().Decompile(context.Background(), f.target)
	if !res.Succeeded() {
		t.Fatalf("Status = %v, err %v", res.Status, res.Err)
	}
	data, _ := os.ReadFile(res.OutputFile)
	got := strings.TrimSpace(string(data))
	want := "args: -ff -pi10 -p " + f.target.ClassFile
	if got != want {
		t.Errorf("decompiler saw %q, want %q", got, want)
	}
}

func TestDecompile_LargeOutput(t *testing.T) {
	// Far more than a pipe buffer on both streams.
	f := newFixture(t, `i=0
while [ $i -lt 4000 ]; do
  echo "line $i of generated source padding padding padding"
  echo "warning $i" >&2
  i=$((i+1))
done`)

	res := f.orchestrator().Decompile(context.Background(), f.target)
	if !res.Succeeded() {
		t.Fatalf("Status = %v, err %v", res.Status, res.Err)
	}
	data, _ := os.ReadFile(res.OutputFile)
	if got := strings.Count(string(data), "\n"); got != 4000 {
		t.Errorf("output has %d lines, want 4000", got)
	}
	if len(res.Outcome.Stderr) > f.cfg.Pump.TailBytes {
		t.Errorf("stderr tail = %d bytes, want at most %d", len(res.Outcome.Stderr), f.cfg.Pump.TailBytes)
	}
	if !strings.Contains(res.Outcome.Stderr, "warning 3999") {
		t.Error("stderr tail lost the newest output")
	}
}

func TestDecompile_ProcessFailure(t *testing.T) {
	f := newFixture(t, `echo "Parsing failed: bad magic" >&2
exit 3`)

	res := f.orchestrator().Decompile(context.Background(), f.target)

	if !res.Failed() {
		t.Fatalf("Status = %v, want failed", res.Status)
	}
	if res.Code != console.CodeProcessExit {
		t.Errorf("Code = %q, want %q", res.Code, console.CodeProcessExit)
	}
	var de *errors.DecompileError
	if !errors.As(res.Err, &de) {
		t.Fatalf("Err = %v, want a DecompileError", res.Err)
	}
	if de.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", de.ExitCode)
	}
	if !strings.Contains(de.Stderr, "bad magic") {
		t.Errorf("Stderr = %q", de.Stderr)
	}
	if !errors.Is(res.Err, errors.ErrProcessFailed) {
		t.Error("Err does not wrap ErrProcessFailed")
	}

	entry, ok := f.sink.Find(console.CodeProcessExit)
	if !ok {
		t.Fatal("no decompiler-exit entry logged")
	}
	if entry.Severity != console.SeverityError {
		t.Errorf("Severity = %v, want error", entry.Severity)
	}
	if _, err := os.Stat(f.outputFile() + partialSuffix); !os.IsNotExist(err) {
		t.Error("partial file left behind after failure")
	}
	if _, err := os.Stat(f.outputFile()); !os.IsNotExist(err) {
		t.Error("output file written for a failed decompilation")
	}
}

func TestDecompile_FailureShowsStderrExcerpt(t *testing.T) {
	f := newFixture(t, `i=1
while [ $i -le 30 ]; do echo "line $i" >&2; i=$((i+1)); done
exit 1`)

	res := f.orchestrator().Decompile(context.Background(), f.target)
	if !res.Failed() {
		t.Fatalf("Status = %v, want failed", res.Status)
	}

	entry, ok := f.sink.Find(console.CodeProcessExit)
	if !ok {
		t.Fatal("no decompiler-exit entry logged")
	}
	excerpt, _ := entry.Params[len(entry.Params)-1].(string)
	if got := strings.Count(excerpt, "\n") + 1; got != stderrLines {
		t.Errorf("excerpt has %d lines, want %d", got, stderrLines)
	}
	if strings.Contains(excerpt, "line 10\n") || !strings.HasSuffix(excerpt, "line 30") {
		t.Errorf("excerpt = %q, want lines 11 to 30", excerpt)
	}

	var de *errors.DecompileError
	if errors.As(res.Err, &de) && !strings.Contains(de.Stderr, "line 1\n") {
		t.Error("DecompileError lost the start of stderr")
	}
}

func TestDecompile_NoOutput(t *testing.T) {
	f := newFixture(t, `exit 0`)

	res := f.orchestrator().Decompile(context.Background(), f.target)
	if !res.Failed() || res.Code != console.CodeNoOutput {
		t.Fatalf("Status = %v, Code = %q, want failed %q", res.Status, res.Code, console.CodeNoOutput)
	}
	if !errors.Is(res.Err, errors.ErrNoOutput) {
		t.Errorf("Err = %v, want ErrNoOutput", res.Err)
	}
	if got := errors.GetSeverity(res.Err); got != errors.SeverityWarning {
		t.Errorf("GetSeverity() = %v, want %v", got, errors.SeverityWarning)
	}
}

func TestDecompile_Excluded(t *testing.T) {
	f := newFixture(t, `echo should-not-run > "$0.ran"`)
	f.cfg.Exclusions = []config.ExclusionRule{{Package: "com.foo", Applies: true, Recursive: true}}

	res := f.orchestrator().Decompile(context.Background(), f.target)

	if !res.Skipped() || res.Code != console.CodeExcluded {
		t.Fatalf("Status = %v, Code = %q, want skipped", res.Status, res.Code)
	}
	if res.Outcome != nil {
		t.Error("Outcome set for an excluded target")
	}
	if _, err := os.Stat(f.cfg.Decompiler.Path + ".ran"); !os.IsNotExist(err) {
		t.Error("decompiler was launched for an excluded class")
	}
	entry, ok := f.sink.Find(console.CodeExcluded)
	if !ok || entry.Severity != console.SeverityInfo {
		t.Errorf("excluded entry = %+v, %v", entry, ok)
	}
}

func TestDecompile_ValidationCancelled(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantCode string
	}{
		{"unspecified", "", console.CodeUnspecifiedPath},
		{"missing", "/definitely/not/here/jad", console.CodePathNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, `echo x`)
			f.cfg.Decompiler.Path = tt.path

			res := f.orchestrator().Decompile(context.Background(), f.target)

			if !res.Cancelled() {
				t.Fatalf("Status = %v, want cancelled", res.Status)
			}
			if res.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", res.Code, tt.wantCode)
			}
			if !errors.Is(res.Err, errors.ErrValidationCancelled) {
				t.Errorf("Err = %v, want ErrValidationCancelled", res.Err)
			}
			if !f.sink.Has(tt.wantCode) {
				t.Errorf("console codes = %v, want %s", f.sink.Codes(), tt.wantCode)
			}
			if _, err := os.Stat(f.cfg.Output.Directory); !os.IsNotExist(err) {
				t.Error("output directory created although validation failed")
			}
		})
	}
}

func TestDecompile_DirectoryAsDecompiler(t *testing.T) {
	f := newFixture(t, `echo x`)
	f.cfg.Decompiler.Path = f.dir

	res := f.orchestrator().Decompile(context.Background(), f.target)
	if !res.Cancelled() || res.Code != console.CodeInvalidPath {
		t.Errorf("Status = %v, Code = %q, want cancelled %q", res.Status, res.Code, console.CodeInvalidPath)
	}
}

type fixPathPrompter struct {
	path    string
	choices int
}

func (p *fixPathPrompter) Choose(context.Context, envcheck.Failure) (envcheck.Choice, error) {
	p.choices++
	return envcheck.ChoiceReconfigure, nil
}

func (p *fixPathPrompter) Reconfigure(_ context.Context, cfg *config.Config) (*config.Config, error) {
	cfg.Decompiler.Path = p.path
	return cfg, nil
}

func TestDecompile_Reconfigured(t *testing.T) {
	f := newFixture(t, `echo "class Bar {}"`)
	good := f.cfg.Decompiler.Path
	f.cfg.Decompiler.Path = filepath.Join(f.dir, "wrong")

	prompter := &fixPathPrompter{path: good}
	validator := envcheck.New(afero.NewOsFs(), f.sink, envcheck.WithPrompter(prompter))

	var saved *config.Config
	o := f.orchestrator(
		WithValidator(validator),
		WithMode(envcheck.Interactive),
		WithReconfigureHook(func(c *config.Config) { saved = c }),
	)

	res := o.Decompile(context.Background(), f.target)

	if !res.Succeeded() {
		t.Fatalf("Status = %v (code %q, err %v), want succeeded", res.Status, res.Code, res.Err)
	}
	if prompter.choices != 1 {
		t.Errorf("prompted %d times, want 1", prompter.choices)
	}
	if saved == nil || saved.Decompiler.Path != good {
		t.Errorf("reconfigure hook got %+v", saved)
	}
	if o.Config().Decompiler.Path != good {
		t.Errorf("active config path = %q, want %q", o.Config().Decompiler.Path, good)
	}
	if f.cfg.Decompiler.Path == good {
		t.Error("original config was modified in place")
	}
}

func TestDecompile_OutputDirectory(t *testing.T) {
	t.Run("not created when disabled", func(t *testing.T) {
		f := newFixture(t, `echo x`)
		f.cfg.Output.CreateIfMissing = false

		res := f.orchestrator().Decompile(context.Background(), f.target)
		if !res.Failed() || res.Code != console.CodeOutputDir {
			t.Errorf("Status = %v, Code = %q, want failed %q", res.Status, res.Code, console.CodeOutputDir)
		}
		if !errors.Is(res.Err, errors.ErrOutputDir) {
			t.Errorf("Err = %v, want ErrOutputDir", res.Err)
		}
	})

	t.Run("existing root is used when creation disabled", func(t *testing.T) {
		f := newFixture(t, `echo x`)
		f.cfg.Output.CreateIfMissing = false
		if err := os.MkdirAll(f.cfg.Output.Directory, 0755); err != nil {
			t.Fatal(err)
		}

		res := f.orchestrator().Decompile(context.Background(), f.target)
		if !res.Succeeded() {
			t.Errorf("Status = %v, err %v, want succeeded", res.Status, res.Err)
		}
	})

	t.Run("root is a file", func(t *testing.T) {
		f := newFixture(t, `echo x`)
		if err := os.WriteFile(f.cfg.Output.Directory, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}

		res := f.orchestrator().Decompile(context.Background(), f.target)
		if !res.Failed() || res.Code != console.CodeOutputDir {
			t.Errorf("Status = %v, Code = %q, want failed %q", res.Status, res.Code, console.CodeOutputDir)
		}
	})

	t.Run("read-only filesystem", func(t *testing.T) {
		f := newFixture(t, `echo x`)
		o := f.orchestrator(WithFs(afero.NewReadOnlyFs(afero.NewOsFs())))

		res := o.Decompile(context.Background(), f.target)
		if !res.Failed() || res.Code != console.CodeOutputDir {
			t.Errorf("Status = %v, Code = %q, want failed %q", res.Status, res.Code, console.CodeOutputDir)
		}
		if f.sink.Has(console.CodeDecompiling) {
			t.Error("decompiler launched although the output directory is unusable")
		}
		if got := errors.GetSeverity(res.Err); got != errors.SeverityCritical {
			t.Errorf("GetSeverity() = %v, want %v", got, errors.SeverityCritical)
		}
	})

	t.Run("relative directory resolves against base dir", func(t *testing.T) {
		f := newFixture(t, `echo x`)
		f.cfg.Output.Directory = "src-out"

		res := f.orchestrator().Decompile(context.Background(), f.target)
		want := filepath.Join(f.dir, "src-out", "com", "foo", "Bar.java")
		if res.OutputFile != want {
			t.Errorf("OutputFile = %q, want %q", res.OutputFile, want)
		}
	})
}

func TestDecompile_Timeout(t *testing.T) {
	f := newFixture(t, `echo started
sleep 30`)
	f.cfg.Decompiler.TimeoutSeconds = 1

	start := time.Now()
	res := f.orchestrator().Decompile(context.Background(), f.target)

	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Decompile took %v, the child was not killed", elapsed)
	}
	if !res.Failed() || res.Code != console.CodeTimeout {
		t.Fatalf("Status = %v, Code = %q, want failed %q", res.Status, res.Code, console.CodeTimeout)
	}
	if !errors.Is(res.Err, errors.ErrTimeout) {
		t.Errorf("Err = %v, want ErrTimeout", res.Err)
	}
	if res.Outcome == nil || !res.Outcome.Killed {
		t.Errorf("Outcome = %+v, want killed", res.Outcome)
	}
	if _, err := os.Stat(f.outputFile()); !os.IsNotExist(err) {
		t.Error("output file written after a timeout")
	}
}

func TestDecompile_ContextCancelled(t *testing.T) {
	t.Run("while running", func(t *testing.T) {
		f := newFixture(t, `sleep 30`)
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(200*time.Millisecond, cancel)

		res := f.orchestrator().Decompile(ctx, f.target)
		if !res.Cancelled() || res.Code != console.CodeCancelled {
			t.Errorf("Status = %v, Code = %q, want cancelled", res.Status, res.Code)
		}
		if !errors.Is(res.Err, errors.ErrCanceled) {
			t.Errorf("Err = %v, want ErrCanceled", res.Err)
		}
	})

	t.Run("before launch", func(t *testing.T) {
		f := newFixture(t, `echo x > "$0.ran"`)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := f.orchestrator().Decompile(ctx, f.target)
		if !res.Cancelled() {
			t.Errorf("Status = %v, want cancelled", res.Status)
		}
		if _, err := os.Stat(f.cfg.Decompiler.Path + ".ran"); !os.IsNotExist(err) {
			t.Error("decompiler launched after cancellation")
		}
	})
}

func TestDecompile_DebuggableAlignsLines(t *testing.T) {
	f := newFixture(t, `case "$*" in
*-lnc*) ;;
*) echo "missing -lnc" >&2; exit 2 ;;
esac
echo "class Bar {"
echo "/*    4*/    void run() {}"
echo "}"`)
	f.cfg.Decompiler.ReformatStyle = config.StyleDebuggable

	res := f.orchestrator().Decompile(context.Background(), f.target)
	if !res.Succeeded() {
		t.Fatalf("Status = %v (code %q, err %v), want succeeded", res.Status, res.Code, res.Err)
	}
	data, _ := os.ReadFile(res.OutputFile)
	lines := strings.Split(string(data), "\n")
	if len(lines) < 4 || !strings.Contains(lines[3], "void run()") {
		t.Errorf("marked line not on line 4:\n%s", data)
	}
}

func TestDecompile_ArchiveTarget(t *testing.T) {
	f := newFixture(t, lastArg+`
d=$(dirname "$last")
ls "$d" >&2
echo "decompiled $(basename "$last")"`)
	jar := filepath.Join(f.dir, "app.jar")
	testutil.WriteJar(t, jar, map[string][]byte{
		"com/foo/Bar.class":       testutil.ClassBytes("com.foo.Bar"),
		"com/foo/Bar$Inner.class": testutil.ClassBytes("com.foo.Bar$Inner"),
	})

	target := Target{ClassName: "com.foo.Bar", Archive: jar, Entry: "com/foo/Bar.class"}
	res := f.orchestrator().Decompile(context.Background(), target)

	if !res.Succeeded() {
		t.Fatalf("Status = %v (code %q, err %v), want succeeded", res.Status, res.Code, res.Err)
	}
	data, _ := os.ReadFile(res.OutputFile)
	if strings.TrimSpace(string(data)) != "decompiled Bar.class" {
		t.Errorf("output = %q", data)
	}
	if !strings.Contains(res.Outcome.Stderr, "Bar$Inner.class") {
		t.Errorf("nested class not extracted next to the outer class, saw %q", res.Outcome.Stderr)
	}
}

func TestDecompile_ArchiveMissingEntry(t *testing.T) {
	f := newFixture(t, `echo x`)
	jar := filepath.Join(f.dir, "app.jar")
	testutil.WriteJar(t, jar, map[string][]byte{"a/B.class": testutil.ClassBytes("a.B")})

	res := f.orchestrator().Decompile(context.Background(), Target{ClassName: "a.C", Archive: jar, Entry: "a/C.class"})
	if !res.Failed() || res.Code != console.CodeExtract {
		t.Errorf("Status = %v, Code = %q, want failed %q", res.Status, res.Code, console.CodeExtract)
	}
}

func TestDecompile_CommandNotFound(t *testing.T) {
	f := newFixture(t, `echo x`)
	// The validator sees the name, but the shell cannot resolve it.
	memFs := afero.NewMemMapFs()
	if err := afero.WriteFile(memFs, "jad-not-installed", nil, 0755); err != nil {
		t.Fatal(err)
	}
	f.cfg.Decompiler.Path = "jad-not-installed"
	o := f.orchestrator(
		WithValidator(envcheck.New(memFs, f.sink)),
		WithEnv([]string{"PATH=/nonexistent"}),
	)

	res := o.Decompile(context.Background(), f.target)
	if !res.Failed() || res.Code != console.CodeProcessExit {
		t.Fatalf("Status = %v, Code = %q, want failed %q", res.Status, res.Code, console.CodeProcessExit)
	}
	if res.Outcome.ExitCode != 127 {
		t.Errorf("ExitCode = %d, want 127", res.Outcome.ExitCode)
	}
}

func TestDecompile_EnvironmentPassedThrough(t *testing.T) {
	f := newFixture(t, `echo "mode=$JDECOMP_TEST_MODE"`)
	o := f.orchestrator(WithEnv([]string{"PATH=" + os.Getenv("PATH"), "JDECOMP_TEST_MODE=strict"}))

	res := o.Decompile(context.Background(), f.target)
	if !res.Succeeded() {
		t.Fatalf("Status = %v, err %v", res.Status, res.Err)
	}
	data, _ := os.ReadFile(res.OutputFile)
	if strings.TrimSpace(string(data)) != "mode=strict" {
		t.Errorf("output = %q", data)
	}
}

func TestDecompile_ConcurrentRequests(t *testing.T) {
	f := newFixture(t, lastArg+`
echo "source of $last"`)
	classes := []string{"a.One", "a.Two", "b.Three", "c.d.Four"}
	o := f.orchestrator()

	results := make(chan Result, len(classes))
	for _, name := range classes {
		file := testutil.WriteClass(t, filepath.Join(f.dir, "classes"), name)
		go func() {
			results <- o.Decompile(context.Background(), Target{ClassName: name, ClassFile: file})
		}()
	}

	ids := map[string]bool{}
	for range classes {
		res := <-results
		if !res.Succeeded() {
			t.Errorf("%s: Status = %v, err %v", res.Target.ClassName, res.Status, res.Err)
			continue
		}
		data, _ := os.ReadFile(res.OutputFile)
		if !strings.Contains(string(data), res.Target.ClassFile) {
			t.Errorf("%s: output %q belongs to another request", res.Target.ClassName, data)
		}
		if ids[res.RequestID] {
			t.Errorf("duplicate request id %s", res.RequestID)
		}
		ids[res.RequestID] = true
	}
}
