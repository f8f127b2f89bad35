package topic

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"github.com/gauss-project/gauss/codec"
	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/xerrors"
)

// tableSubscriber is one subscribe-mode consumer's delivery channel plus
// the overflow policy used when delivering to it (§4.7 step 5: wiring is
// per-subscriber). Read's subscribe mode always records PolicyBlock; a
// subscriber cannot choose another policy.
type tableSubscriber struct {
	ch     chan<- []record.TopicRecord
	policy BackpressurePolicy
}

// Table is the memory-table storage variant: decodes each payload,
// extracts a configured key field, performs upsert, and serves
// snapshot/query/subscribe reads. Grounded on §4.9's key-field extraction
// algorithm and topic-engine/src/lib.rs's subscriber fan-out with
// swap-remove pruning.
type Table struct {
	mu       sync.Mutex
	keyField string
	codec    codec.Codec
	keyIndex int
	order    []string
	rows     map[string]record.TopicRecord

	subs    []tableSubscriber
	limiter *rate.Limiter // optional: coalesces bursty upserts into bounded snapshot delivery
}

// NewTable constructs a Table storage keyed by keyField (a source-schema
// field name located once at Init).
func NewTable(keyField string) *Table {
	return &Table{keyField: keyField, rows: make(map[string]record.TopicRecord)}
}

// WithSnapshotRateLimit bounds how often subscribe-mode snapshots are
// pushed to subscribers, at most perSecond times per second with a burst
// of burst. A Save landing while the limiter is exhausted still commits
// the upsert; only that Save's subscriber notification is skipped, since
// the next delivered snapshot already reflects it.
func (t *Table) WithSnapshotRateLimit(perSecond float64, burst int) *Table {
	t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return t
}

func (t *Table) Init(ctx Context) error {
	if ctx.Serializer == nil {
		return xerrors.Config(fmt.Errorf("table storage requires a format serializer to locate the key field"), "topic.Table", "Init")
	}
	sch, ok := ctx.Serializer.Schema()
	if !ok {
		return xerrors.Config(fmt.Errorf("table storage requires a schema-bearing codec"), "topic.Table", "Init")
	}
	idx := sch.IndexOf(t.keyField)
	if idx < 0 {
		return xerrors.Config(fmt.Errorf("key field %q not present in source schema", t.keyField), "topic.Table", "Init")
	}
	t.codec = ctx.Serializer
	t.keyIndex = idx
	return nil
}

func (t *Table) Save(rec record.TopicRecord) error {
	row, err := t.codec.Deserialize(rec.Data)
	if err != nil {
		return err
	}
	keyVal := row.At(t.keyIndex)
	if keyVal.IsNull() {
		return xerrors.Encoding(xerrors.ErrMissingKeyField, "topic.Table", "Save")
	}
	key := keyVal.CanonicalText()

	t.mu.Lock()
	if _, exists := t.rows[key]; !exists {
		t.order = append(t.order, key)
	}
	t.rows[key] = rec
	subs := append([]tableSubscriber(nil), t.subs...)
	snapshot := t.snapshotLocked()
	limited := t.limiter != nil && !t.limiter.Allow()
	t.mu.Unlock()

	if limited {
		return nil
	}
	for _, s := range subs {
		deliver(s, snapshot)
	}
	return nil
}

func (t *Table) snapshotLocked() []record.TopicRecord {
	out := make([]record.TopicRecord, 0, len(t.order))
	for _, k := range t.order {
		if rec, ok := t.rows[k]; ok {
			out = append(out, rec)
		}
	}
	return out
}

func deliver(s tableSubscriber, snapshot []record.TopicRecord) {
	switch s.policy {
	case PolicyDrop:
		select {
		case s.ch <- snapshot:
		default:
		}
	default: // block and overwrite both deliver synchronously for a table's coalesced-snapshot channel
		s.ch <- snapshot
	}
}

func (t *Table) Read(mode ReadMode, params ReadParams) (ReadResult, error) {
	switch mode {
	case ReadSnapshot:
		t.mu.Lock()
		defer t.mu.Unlock()
		return ReadResult{Records: t.snapshotLocked()}, nil

	case ReadQuery:
		t.mu.Lock()
		snapshot := t.snapshotLocked()
		t.mu.Unlock()
		sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].TsMs < snapshot[j].TsMs })
		var recs []record.TopicRecord
		for _, rec := range snapshot {
			if rec.TsMs < params.FromMs || rec.TsMs > params.ToMs {
				continue
			}
			recs = append(recs, rec)
			if params.Limit > 0 && len(recs) >= params.Limit {
				break
			}
		}
		return ReadResult{Records: recs}, nil

	case ReadSubscribe:
		if params.Snapshot == nil {
			return ReadResult{}, xerrors.Config(fmt.Errorf("subscribe read requires a delivery channel"), "topic.Table", "Read")
		}
		t.mu.Lock()
		t.subs = append(t.subs, tableSubscriber{ch: params.Snapshot, policy: PolicyBlock})
		initial := t.snapshotLocked()
		t.mu.Unlock()
		params.Snapshot <- initial
		return ReadResult{}, nil

	default:
		return ReadResult{}, xerrors.Config(xerrors.ErrReadModeIncompatible, "topic.Table", "Read")
	}
}

// Unsubscribe removes ch from the fan-out list by swap-remove: the entry
// is replaced with the last element and the slice truncated, avoiding a
// shift of every remaining subscriber on every departure.
func (t *Table) Unsubscribe(ch chan<- []record.TopicRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s.ch == ch {
			last := len(t.subs) - 1
			t.subs[i] = t.subs[last]
			t.subs = t.subs[:last]
			return
		}
	}
}

func (t *Table) SupportedReadModes() []ReadMode {
	return []ReadMode{ReadSnapshot, ReadQuery, ReadSubscribe}
}
