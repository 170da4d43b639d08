// Package telemetry bridges task spans to OpenTelemetry and streams task output to a renderer.
package telemetry

import (
	"bytes"
	"sync"
	"time"

	"go.trai.ch/zerr"
)

const (
	// DefaultSizeLimit is the buffered size, in bytes, that triggers a flush.
	DefaultSizeLimit = 4096
	// DefaultTimeLimit is how long output may wait in the buffer.
	DefaultTimeLimit = 50 * time.Millisecond
)

// ErrBatcherClosed is returned when writing to a closed BatchProcessor.
var ErrBatcherClosed = zerr.New("batch processor is closed")

// BatchProcessor coalesces task output into chunks for a renderer.
// A chunk is handed over once the buffer reaches the size limit or its oldest
// byte has waited the time limit. Size-triggered chunks end after the last
// complete line when there is one, so a line is rarely split across chunks.
// It is safe for concurrent use.
type BatchProcessor struct {
	sizeLimit int
	timeLimit time.Duration
	onFlush   func([]byte)

	mu     sync.Mutex
	buf    []byte
	timer  *time.Timer
	closed bool
}

// NewBatchProcessor returns a BatchProcessor handing chunks to onFlush.
// Non-positive limits fall back to DefaultSizeLimit and DefaultTimeLimit.
func NewBatchProcessor(sizeLimit int, timeLimit time.Duration, onFlush func([]byte)) *BatchProcessor {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	return &BatchProcessor{sizeLimit: sizeLimit, timeLimit: timeLimit, onFlush: onFlush}
}

// Write buffers p. It never blocks on the renderer.
func (bp *BatchProcessor) Write(p []byte) (int, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return 0, ErrBatcherClosed
	}

	bp.buf = append(bp.buf, p...)
	if len(bp.buf) >= bp.sizeLimit {
		bp.flushLines()
	}
	if len(bp.buf) > 0 && bp.timer == nil {
		bp.timer = time.AfterFunc(bp.timeLimit, bp.Flush)
	}
	return len(p), nil
}

// Flush hands everything buffered to the callback, partial lines included.
func (bp *BatchProcessor) Flush() {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if !bp.closed {
		bp.flushAll()
	}
}

// Close flushes what is left. Later writes fail with ErrBatcherClosed.
func (bp *BatchProcessor) Close() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return nil
	}
	bp.closed = true
	bp.flushAll()
	return nil
}

// flushLines emits the buffer up to its last newline. A single line longer
// than the size limit is emitted whole. mu must be held.
func (bp *BatchProcessor) flushLines() {
	cut := bytes.LastIndexByte(bp.buf, '\n') + 1
	if cut == 0 {
		cut = len(bp.buf)
	}
	bp.emit(bp.buf[:cut])
	bp.buf = append([]byte(nil), bp.buf[cut:]...)
	if len(bp.buf) == 0 {
		bp.stopTimer()
	}
}

// flushAll must be called with mu held.
func (bp *BatchProcessor) flushAll() {
	bp.stopTimer()
	bp.emit(bp.buf)
	bp.buf = nil
}

// emit runs the callback under mu to keep chunks ordered, so it must not block.
func (bp *BatchProcessor) emit(chunk []byte) {
	if len(chunk) == 0 || bp.onFlush == nil {
		return
	}
	bp.onFlush(bytes.Clone(chunk))
}

func (bp *BatchProcessor) stopTimer() {
	if bp.timer != nil {
		bp.timer.Stop()
		bp.timer = nil
	}
}
