package pump

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/jdecomp/internal/console"
)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

// syncBuffer is a bytes.Buffer safe to read while a pumper writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

func waitDone(t *testing.T, p *Pumper) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pumper did not finish")
	}
}

func TestPumper_RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 511, 512, 513, 1024, 10000} {
		data := payload(n)

		t.Run(fmt.Sprintf("reader N=%d", n), func(t *testing.T) {
			var dst syncBuffer
			rec := console.NewRecorder()
			p := New("stdout", bytes.NewReader(data), &dst, rec)
			p.Start()
			if err := p.Wait(); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
			if !bytes.Equal(dst.Bytes(), data) {
				t.Errorf("N=%d: destination holds %d bytes, want %d identical bytes", n, len(dst.Bytes()), n)
			}
			if p.Bytes() != int64(n) {
				t.Errorf("Bytes() = %d, want %d", p.Bytes(), n)
			}
			if len(rec.Entries()) != 0 {
				t.Errorf("unexpected sink entries: %v", rec.Codes())
			}
		})

		t.Run(fmt.Sprintf("os pipe N=%d", n), func(t *testing.T) {
			r, w, err := os.Pipe()
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()

			var dst syncBuffer
			p := New("stdout", r, &dst, nil)
			p.Start()

			// Write in odd-sized pieces the way a process would.
			go func() {
				defer w.Close()
				rest := data
				for len(rest) > 0 {
					k := min(len(rest), 333)
					_, _ = w.Write(rest[:k])
					rest = rest[k:]
				}
			}()

			if err := p.Wait(); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
			if !bytes.Equal(dst.Bytes(), data) {
				t.Errorf("N=%d: destination holds %d bytes, want %d identical bytes", n, len(dst.Bytes()), n)
			}
		})
	}
}

func TestPumper_StartDoesNotBlock(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	p := New("stderr", pr, io.Discard, nil)
	started := make(chan struct{})
	go func() {
		p.Start()
		close(started)
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("Start() blocked on an idle source")
	}
	if p.Err() != nil {
		t.Errorf("Err() = %v while running, want nil", p.Err())
	}
	_ = pr.CloseWithError(io.EOF)
	waitDone(t, p)
}

func TestPumper_StartTwice(t *testing.T) {
	var dst syncBuffer
	p := New("stdout", strings.NewReader("hello"), &dst, nil)
	p.Start()
	p.Start()
	_ = p.Wait()
	if string(dst.Bytes()) != "hello" {
		t.Errorf("destination = %q, want %q", dst.Bytes(), "hello")
	}
}

func TestPumper_WaitWithoutStart(t *testing.T) {
	p := New("stdout", strings.NewReader("x"), io.Discard, nil)
	if err := p.Wait(); err != nil {
		t.Errorf("Wait() error = %v, want nil", err)
	}
}

func TestPumper_StopPumping(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	rec := console.NewRecorder()
	var dst syncBuffer
	p := New("stdout", r, &dst, rec)
	p.Start()

	if _, err := w.Write([]byte("partial")); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for p.Bytes() < int64(len("partial")) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	p.StopPumping()
	// The loop is blocked in Read; closing the source unblocks it.
	_ = r.Close()
	waitDone(t, p)

	if !p.Stopped() {
		t.Error("Stopped() = false after StopPumping")
	}
	if string(dst.Bytes()) != "partial" {
		t.Errorf("destination = %q, want %q", dst.Bytes(), "partial")
	}
	if rec.Has(console.CodePumpIO) {
		t.Error("errors after StopPumping should not be reported")
	}
}

func TestPumper_StopBeforeStart(t *testing.T) {
	var dst syncBuffer
	p := New("stdout", strings.NewReader("never copied"), &dst, nil)
	p.StopPumping()
	p.Start()
	waitDone(t, p)
	if len(dst.Bytes()) != 0 {
		t.Errorf("destination = %q, want empty", dst.Bytes())
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) > 0 {
		n := copy(p, f.data)
		f.data = f.data[n:]
		return n, nil
	}
	return 0, f.err
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestPumper_ReportsReadError(t *testing.T) {
	boom := errors.New("pipe broke")
	rec := console.NewRecorder()
	var dst syncBuffer

	p := New("stderr", &failingReader{data: []byte("before"), err: boom}, &dst, rec)
	p.Start()

	if err := p.Wait(); !errors.Is(err, boom) {
		t.Fatalf("Wait() error = %v, want %v", err, boom)
	}
	if string(dst.Bytes()) != "before" {
		t.Errorf("destination = %q, want %q", dst.Bytes(), "before")
	}

	entry, ok := rec.Find(console.CodePumpIO)
	if !ok {
		t.Fatal("read error was not reported to the sink")
	}
	if entry.Severity != console.SeverityError {
		t.Errorf("Severity = %v, want error", entry.Severity)
	}
	if len(entry.Params) != 2 || entry.Params[0] != "stderr" || entry.Params[1] != "pipe broke" {
		t.Errorf("Params = %v, want [stderr pipe broke]", entry.Params)
	}
	if len(rec.Entries()) != 1 {
		t.Errorf("got %d entries, want exactly one report", len(rec.Entries()))
	}
}

func TestPumper_ReportsWriteError(t *testing.T) {
	boom := errors.New("disk full")
	rec := console.NewRecorder()

	p := New("stdout", strings.NewReader(strings.Repeat("x", 2000)), failingWriter{err: boom}, rec)
	p.Start()

	if err := p.Wait(); !errors.Is(err, boom) {
		t.Fatalf("Wait() error = %v, want %v", err, boom)
	}
	if !rec.Has(console.CodePumpIO) {
		t.Error("write error was not reported to the sink")
	}
	if p.Bytes() != 0 {
		t.Errorf("Bytes() = %d, want 0", p.Bytes())
	}
}

// stutterReader returns empty reads before each chunk.
type stutterReader struct {
	data   []byte
	empty  int
	misses int
}

func (s *stutterReader) Read(p []byte) (int, error) {
	if len(s.data) == 0 {
		return 0, io.EOF
	}
	if s.misses < s.empty {
		s.misses++
		return 0, nil
	}
	s.misses = 0
	n := copy(p, s.data)
	s.data = s.data[n:]
	return n, nil
}

func TestPumper_EmptyReadsYield(t *testing.T) {
	data := payload(1500)
	var dst syncBuffer
	src := &stutterReader{data: data, empty: 3}

	p := New("stdout", src, &dst, nil, WithIdleSleep(2*time.Millisecond))
	start := time.Now()
	p.Start()
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if !bytes.Equal(dst.Bytes(), data) {
		t.Error("destination does not match source")
	}
	// 3 chunks x 3 empty reads x 2ms.
	if elapsed := time.Since(start); elapsed < 18*time.Millisecond {
		t.Errorf("pumper finished in %v; empty reads should sleep", elapsed)
	}
}

func TestPumper_ConcurrentStreams(t *testing.T) {
	outR, outW, _ := os.Pipe()
	errR, errW, _ := os.Pipe()
	defer outR.Close()
	defer errR.Close()

	var out, errBuf syncBuffer
	stdout := New("stdout", outR, &out, nil)
	stderr := New("stderr", errR, &errBuf, nil)
	stdout.Start()
	stderr.Start()

	// More than a typical pipe buffer on each stream, interleaved. A single
	// reader draining only one stream would deadlock here.
	big := payload(256 << 10)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); defer outW.Close(); _, _ = outW.Write(big) }()
	go func() { defer wg.Done(); defer errW.Close(); _, _ = errW.Write(big) }()

	waitDone(t, stdout)
	waitDone(t, stderr)
	wg.Wait()

	if len(out.Bytes()) != len(big) || len(errBuf.Bytes()) != len(big) {
		t.Errorf("stdout=%d stderr=%d bytes, want %d each", len(out.Bytes()), len(errBuf.Bytes()), len(big))
	}
}
