package topic

import (
	"sync"

	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/xerrors"
)

// Ring is the fixed-capacity in-memory ring buffer storage variant:
// offset/latest/query modes, restartable cursor, overflow handled per the
// topic's configured BackpressurePolicy. Adapted from the locking and
// condition-variable discipline of pkg/buffer/circular.go, restructured
// for non-destructive multi-reader pull access (Read never removes data;
// eviction happens only on overwrite).
//
// Back-pressure floor: an offset-mode Read call is treated as the reader
// acknowledging consumption through the records it returned, advancing the
// ring's floor. A block-policy ring assumes a single sequential offset
// consumer driving the floor forward; a second independent offset reader
// racing ahead would let the slower one lose data it hasn't seen yet. This
// single-consumer assumption is a deliberate simplification — latest-mode
// reads never touch the floor, so a fan-out of one offset/block consumer
// plus any number of latest-mode consumers (Scenario 4's shape) is safe.
type Ring struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	buf      []record.TopicRecord
	capacity uint64
	total    uint64 // records ever written; also the next write's offset
	floor    uint64 // highest offset consumed by an offset-mode Read
	policy   BackpressurePolicy
	closed   bool
}

// NewRing constructs a Ring of the given capacity (records) and overflow
// policy.
func NewRing(capacity int, policy BackpressurePolicy) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	r := &Ring{
		buf:      make([]record.TopicRecord, capacity),
		capacity: uint64(capacity),
		policy:   policy,
	}
	r.notFull = sync.NewCond(&r.mu)
	return r
}

func (r *Ring) Init(Context) error { return nil }

func (r *Ring) Save(rec record.TopicRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.total-r.floor >= r.capacity {
		if r.policy == PolicyOverwrite {
			r.floor = r.total - r.capacity + 1
			break
		}
		if r.policy == PolicyDrop {
			return nil
		}
		// PolicyBlock: wait for an offset-mode reader to advance the floor.
		if r.closed {
			return xerrors.Transient(xerrors.ErrStorageNotReady, "topic.Ring", "Save")
		}
		r.notFull.Wait()
	}

	r.buf[r.total%r.capacity] = rec
	r.total++
	return nil
}

func (r *Ring) Read(mode ReadMode, params ReadParams) (ReadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldest := uint64(0)
	if r.total > r.capacity {
		oldest = r.total - r.capacity
	}

	switch mode {
	case ReadLatest:
		if r.total == 0 {
			return ReadResult{NextOffset: r.total}, nil
		}
		return ReadResult{
			Records:    []record.TopicRecord{r.buf[(r.total-1)%r.capacity]},
			NextOffset: r.total,
		}, nil

	case ReadOffset:
		start := params.Offset
		if start < oldest {
			start = oldest
		}
		recs := make([]record.TopicRecord, 0, r.total-start)
		for o := start; o < r.total; o++ {
			recs = append(recs, r.buf[o%r.capacity])
		}
		if r.total > r.floor {
			r.floor = r.total
			r.notFull.Broadcast()
		}
		return ReadResult{Records: recs, NextOffset: r.total}, nil

	case ReadQuery:
		var recs []record.TopicRecord
		for o := oldest; o < r.total; o++ {
			rec := r.buf[o%r.capacity]
			if rec.TsMs < params.FromMs || rec.TsMs > params.ToMs {
				continue
			}
			recs = append(recs, rec)
			if params.Limit > 0 && len(recs) >= params.Limit {
				break
			}
		}
		return ReadResult{Records: recs, NextOffset: r.total}, nil

	default:
		return ReadResult{}, xerrors.Config(xerrors.ErrReadModeIncompatible, "topic.Ring", "Read")
	}
}

func (r *Ring) SupportedReadModes() []ReadMode {
	return []ReadMode{ReadOffset, ReadLatest, ReadQuery}
}

// Close releases any writers blocked on capacity, letting them observe
// ErrStorageNotReady instead of waiting forever.
func (r *Ring) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.notFull.Broadcast()
	return nil
}
