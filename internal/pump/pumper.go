// Package pump drains a process output stream into a destination on a
// background goroutine.
//
// A decompiler writes the source to stdout and diagnostics to stderr. Both
// pipes must be drained while the caller waits for the process to exit,
// otherwise the child blocks on a full pipe buffer and never exits. Start
// one Pumper per stream before calling Wait on the process.
package pump

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/jdecomp/internal/console"
)

// ChunkSize is the size of a single copy.
const ChunkSize = 512

// DefaultIdleSleep is how long the pumper yields after a read that returned
// no data.
const DefaultIdleSleep = 5 * time.Millisecond

// Pumper copies from a source to a destination until the source reaches EOF,
// an I/O error occurs, or StopPumping is called.
type Pumper struct {
	name string
	src  io.Reader
	dst  io.Writer
	sink console.Sink
	idle time.Duration

	startOnce sync.Once
	started   atomic.Bool
	stopped   atomic.Bool
	done      chan struct{}
	written   atomic.Int64
	err       error
}

// Option configures a Pumper.
type Option func(*Pumper)

// WithIdleSleep overrides DefaultIdleSleep.
func WithIdleSleep(d time.Duration) Option {
	return func(p *Pumper) { p.idle = d }
}

// New creates a pumper named name (for example "stdout"). I/O failures are
// reported to sink; a nil sink discards them.
func New(name string, src io.Reader, dst io.Writer, sink console.Sink, opts ...Option) *Pumper {
	if sink == nil {
		sink = console.Discard
	}
	p := &Pumper{
		name: name,
		src:  src,
		dst:  dst,
		sink: sink,
		idle: DefaultIdleSleep,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the stream name given to New.
func (p *Pumper) Name() string { return p.name }

// Start launches the copy loop and returns immediately. Calling Start more
// than once has no effect.
func (p *Pumper) Start() {
	p.startOnce.Do(func() {
		p.started.Store(true)
		go p.run()
	})
}

// StopPumping asks the loop to exit. The flag is checked between chunks, so
// a read that is already blocked finishes first; close the source to
// interrupt it. Errors caused by that close are not reported.
func (p *Pumper) StopPumping() {
	p.stopped.Store(true)
}

// Stopped reports whether StopPumping has been called.
func (p *Pumper) Stopped() bool {
	return p.stopped.Load()
}

// Done is closed when the copy loop has exited.
func (p *Pumper) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the loop exits and returns the I/O error that ended it,
// if any. Wait on a pumper that was never started returns nil immediately.
func (p *Pumper) Wait() error {
	if !p.started.Load() {
		return nil
	}
	<-p.done
	return p.err
}

// Err returns the error that ended the loop, or nil while it is running.
func (p *Pumper) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Bytes returns the number of bytes written to the destination so far.
func (p *Pumper) Bytes() int64 {
	return p.written.Load()
}

func (p *Pumper) run() {
	defer close(p.done)

	buf := make([]byte, ChunkSize)
	for !p.stopped.Load() {
		n, err := p.src.Read(buf)
		if n > 0 {
			if _, werr := p.dst.Write(buf[:n]); werr != nil {
				p.fail(werr)
				return
			}
			p.written.Add(int64(n))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.fail(err)
			}
			return
		}
		if n == 0 {
			time.Sleep(p.idle)
		}
	}
}

func (p *Pumper) fail(err error) {
	p.err = err
	if p.stopped.Load() {
		return
	}
	p.sink.Log(console.Error(console.CodePumpIO, p.name, err.Error()))
}
