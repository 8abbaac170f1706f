package call

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
	"github.com/seu-repo/voxa-cobranza/internal/observability/telemetry"
	"github.com/seu-repo/voxa-cobranza/internal/ports"
)

const (
	activeKeyPrefix = "call:active:"
	mirrorTimeout   = 2 * time.Second
	mirrorBacklog   = 256
)

// mirrorOp is one cache write. A nil value deletes the key.
type mirrorOp struct {
	key   string
	value []byte
}

// Registry is the set of live sessions in this process. When a cache is
// configured each entry is mirrored under call:active:<callSid> so other
// replicas and the ops API can see it. Cache writes run on one background
// writer, in the order they were issued, and never on the caller's goroutine.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cache    ports.Cache
	ttl      time.Duration
	log      *zap.Logger

	ops      chan mirrorOp
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewRegistry(cache ports.Cache, ttl time.Duration, log *zap.Logger) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		cache:    cache,
		ttl:      ttl,
		log:      log,
		stop:     make(chan struct{}),
	}
	if cache != nil {
		r.ops = make(chan mirrorOp, mirrorBacklog)
		r.wg.Add(1)
		go r.writeMirror()
	}
	return r
}

// Close flushes queued cache writes and stops the writer.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}

func (r *Registry) add(s *Session) error {
	r.mu.Lock()
	if _, exists := r.sessions[s.streamSid]; exists {
		r.mu.Unlock()
		return ErrSessionExists
	}
	r.sessions[s.streamSid] = s
	r.mu.Unlock()

	telemetry.ActiveCalls.Inc()
	r.mirror(s.Snapshot())
	return nil
}

func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	current, ok := r.sessions[s.streamSid]
	if ok && current == s {
		delete(r.sessions, s.streamSid)
	}
	r.mu.Unlock()

	if !ok || current != s {
		return
	}
	telemetry.ActiveCalls.Dec()
	r.enqueue(mirrorOp{key: activeKeyPrefix + s.callSid})
}

// mirror queues a refresh of the cached view of a session.
func (r *Registry) mirror(view domain.ActiveCall) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	r.enqueue(mirrorOp{key: activeKeyPrefix + view.CallSid, value: data})
}

func (r *Registry) enqueue(op mirrorOp) {
	if r.ops == nil {
		return
	}
	select {
	case r.ops <- op:
	default:
		r.log.Warn("Active call mirror backlog full, dropping write", zap.String("key", op.key))
	}
}

func (r *Registry) writeMirror() {
	defer r.wg.Done()
	for {
		select {
		case op := <-r.ops:
			r.apply(op)
		case <-r.stop:
			for {
				select {
				case op := <-r.ops:
					r.apply(op)
				default:
					return
				}
			}
		}
	}
}

func (r *Registry) apply(op mirrorOp) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()

	var err error
	if op.value == nil {
		err = r.cache.Delete(ctx, op.key)
	} else {
		err = r.cache.Set(ctx, op.key, string(op.value), r.ttl)
	}
	if err != nil {
		r.log.Warn("Failed to mirror active call", zap.String("key", op.key), zap.Error(err))
	}
}

func (r *Registry) Get(streamSid string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[streamSid]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot lists the live sessions ordered by start time.
func (r *Registry) Snapshot() []domain.ActiveCall {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]domain.ActiveCall, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}
