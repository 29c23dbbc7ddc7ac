package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

var (
	out     io.Writer
	file    *os.File
	mu      sync.Mutex
	enabled atomic.Bool

	queue   atomic.Pointer[asyncQueue]
	dropped atomic.Uint64
)

// asyncQueueSize bounds lines waiting for the writer goroutine
const asyncQueueSize = 256

type entry struct {
	category string
	msg      string
}

// asyncQueue carries lines from goroutines that must not wait on log I/O
type asyncQueue struct {
	lines chan entry
	stop  chan struct{}
	done  chan struct{}
}

// DefaultPath returns ~/.config/go-stageseq/debug.log
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "go-stageseq", "debug.log")
}

// Enable starts debug logging to path (DefaultPath when empty). The file is truncated.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled.Load() {
		return nil
	}
	if path == "" {
		path = DefaultPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("debug log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("debug log: %w", err)
	}

	file = f
	out = f
	enabled.Store(true)
	startQueue()

	// Write directly (can't call Log - we hold the mutex)
	write("debug", "=== Debug logging started ===")
	return nil
}

// EnableWriter sends debug logging to w instead of a file
func EnableWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	enabled.Store(w != nil)
	if w != nil {
		startQueue()
	}
}

// Disable stops debug logging. Queued lines are written first.
func Disable() {
	enabled.Store(false)
	if q := queue.Swap(nil); q != nil {
		close(q.stop)
		<-q.done
	}

	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
	out = nil
}

// Enabled reports whether logging is on
func Enabled() bool {
	return enabled.Load()
}

// Log writes a message to the debug log
func Log(category, format string, args ...any) {
	if !enabled.Load() {
		return
	}
	mu.Lock()
	defer mu.Unlock()

	if out == nil {
		return
	}
	write(category, fmt.Sprintf(format, args...))
}

func write(category, msg string) {
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(out, "[%s] %-10s %s\n", ts, category, msg)
	if file != nil {
		file.Sync() // flush immediately so we see logs even on crash
	}
}

// startQueue launches the writer goroutine once. Call with mu held.
func startQueue() {
	if queue.Load() != nil {
		return
	}
	q := &asyncQueue{
		lines: make(chan entry, asyncQueueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	queue.Store(q)
	go q.drain()
}

func (q *asyncQueue) drain() {
	defer close(q.done)
	for {
		select {
		case e := <-q.lines:
			q.write(e)
		case <-q.stop:
			for {
				select {
				case e := <-q.lines:
					q.write(e)
				default:
					return
				}
			}
		}
	}
}

func (q *asyncQueue) write(e entry) {
	mu.Lock()
	defer mu.Unlock()
	if out != nil {
		write(e.category, e.msg)
	}
}

// Post queues a message for the writer goroutine and never blocks.
// Lines are dropped while the queue is full.
func Post(category, format string, args ...any) {
	if !enabled.Load() {
		return
	}
	q := queue.Load()
	if q == nil {
		return
	}
	select {
	case q.lines <- entry{category, fmt.Sprintf(format, args...)}:
	default:
		dropped.Add(1)
	}
}

// Dropped returns how many posted lines were lost to a full queue
func Dropped() uint64 {
	return dropped.Load()
}

// Every rate-limits one call site for high-frequency events:
//
//	var busyLog = debug.NewEvery(200)
//	if busyLog.Tick() {
//		debug.Post("sched", "lock busy")
//	}
type Every struct {
	n     uint64
	count atomic.Uint64
}

// NewEvery passes one call in n
func NewEvery(n int) *Every {
	return &Every{n: uint64(max(n, 1))}
}

// Tick counts a call and reports whether this one should be logged.
// It does not count while logging is off.
func (e *Every) Tick() bool {
	if !enabled.Load() {
		return false
	}
	return e.count.Add(1)%e.n == 0
}

// Count returns the calls seen while logging was on
func (e *Every) Count() uint64 {
	return e.count.Load()
}
