// Package transcript serializes finalized utterances so that each one is fully
// handled before the next is looked at.
package transcript

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
)

type Handler func(ctx context.Context, item domain.TranscriptItem)

// Queue is a FIFO with a single drain loop. Enqueue never blocks on the handler.
type Queue struct {
	ctx       context.Context
	handler   Handler
	minLength int
	log       *zap.Logger

	mu       sync.Mutex
	items    []domain.TranscriptItem
	draining bool
	closed   bool
	wg       sync.WaitGroup
}

// New builds a queue whose handler runs with ctx. Utterances shorter than
// minLength runes after trimming are treated as noise.
func New(ctx context.Context, handler Handler, minLength int, log *zap.Logger) *Queue {
	return &Queue{
		ctx:       ctx,
		handler:   handler,
		minLength: minLength,
		log:       log,
	}
}

// Enqueue appends text and starts the drain loop if it is idle. It reports
// whether the utterance was accepted.
func (q *Queue) Enqueue(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) < q.minLength {
		q.log.Debug("Dropping short transcript", zap.String("text", text))
		return false
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, domain.TranscriptItem{Text: text, ReceivedAt: time.Now()})
	start := !q.draining
	if start {
		q.draining = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
	return true
}

func (q *Queue) drain() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if q.closed || len(q.items) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		item := q.items[0]
		q.items[0] = domain.TranscriptItem{}
		q.items = q.items[1:]
		q.mu.Unlock()

		q.handle(item)
	}
}

func (q *Queue) handle(item domain.TranscriptItem) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("Transcript handler panicked",
				zap.Any("panic", r),
				zap.String("text", item.Text),
			)
		}
	}()
	q.handler(q.ctx, item)
}

// Close drops pending items. A handler already running finishes its item.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()
}

// Wait blocks until the drain loop is idle.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Draining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}
