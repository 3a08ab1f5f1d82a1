// Package telemetry records install work as OpenTelemetry spans and streams
// span output to a renderer.
package telemetry

import (
	"bytes"
	"sync"
	"time"

	"go.trai.ch/zerr"
)

const (
	// DefaultSizeLimit is the buffered byte count that forces a flush.
	DefaultSizeLimit = 4096
	// DefaultTimeLimit is how often buffered lines are flushed.
	DefaultTimeLimit = 50 * time.Millisecond
)

var errBatcherClosed = zerr.New("batch processor is closed")

// BatchProcessor buffers span output and hands it to onFlush in chunks that
// end on a line boundary. Complete lines are flushed every timeLimit or once
// sizeLimit bytes are buffered; a single line longer than sizeLimit is
// flushed whole. Close flushes whatever is left, partial line included.
type BatchProcessor struct {
	sizeLimit int
	timeLimit time.Duration
	onFlush   func([]byte)

	mu     sync.Mutex
	buffer bytes.Buffer
	ticker *time.Ticker
	stopCh chan struct{}
	closed bool
}

// NewBatchProcessor starts a BatchProcessor. Non-positive limits select the
// defaults. Call Close to stop its ticker.
func NewBatchProcessor(sizeLimit int, timeLimit time.Duration, onFlush func([]byte)) *BatchProcessor {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	bp := &BatchProcessor{
		sizeLimit: sizeLimit,
		timeLimit: timeLimit,
		onFlush:   onFlush,
		ticker:    time.NewTicker(timeLimit),
		stopCh:    make(chan struct{}),
	}
	go bp.run()
	return bp
}

// Write buffers p.
func (bp *BatchProcessor) Write(p []byte) (int, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return 0, errBatcherClosed
	}
	n, _ := bp.buffer.Write(p)
	if bp.buffer.Len() >= bp.sizeLimit {
		bp.flushLocked(bytes.IndexByte(bp.buffer.Bytes(), '\n') < 0)
		bp.ticker.Reset(bp.timeLimit)
	}
	return n, nil
}

// Flush hands every complete buffered line to the callback.
func (bp *BatchProcessor) Flush() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if !bp.closed {
		bp.flushLocked(false)
	}
}

// Close stops the ticker and flushes everything still buffered.
func (bp *BatchProcessor) Close() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return nil
	}
	bp.closed = true
	close(bp.stopCh)
	bp.flushLocked(true)
	return nil
}

func (bp *BatchProcessor) run() {
	for {
		select {
		case <-bp.ticker.C:
			bp.Flush()
		case <-bp.stopCh:
			bp.ticker.Stop()
			return
		}
	}
}

// flushLocked must be called with mu held. Without all only the data up to
// the last newline is flushed.
func (bp *BatchProcessor) flushLocked(all bool) {
	data := bp.buffer.Bytes()
	end := len(data)
	if !all {
		end = bytes.LastIndexByte(data, '\n') + 1
	}
	if end == 0 {
		return
	}

	chunk := make([]byte, end)
	copy(chunk, data[:end])
	bp.buffer.Next(end)

	if bp.onFlush != nil {
		bp.onFlush(chunk)
	}
}
