package topic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/xerrors"
)

// NATS is the cross-process fan-out storage variant (§4.11 supplemented
// feature, C6): Save publishes each record to a NATS subject named after
// the topic, and a JetStream KV bucket holds the latest record so a
// latest- or snapshot-mode reader joining mid-stream gets it instead of
// waiting for the next publish. A subscribe-mode reader gets no initial
// snapshot: its channel receives only records published after it
// subscribes. Grounded
// on the platform's natsclient KV-with-CAS pattern and
// original_source/libs/topic-engine/src/lib.rs's "prune dead subscribers
// on next publish" discipline.
type NATS struct {
	conn    *nats.Conn
	kv      jetstream.KeyValue
	subject string

	mu   sync.Mutex
	subs []*natsSubscription

	latestKey string
}

type natsSubscription struct {
	ch     chan<- []record.TopicRecord
	closed bool
}

// NewNATS constructs a NATS-backed storage publishing to subject and
// persisting the latest record under latestKey in kv. kv may be nil, in
// which case ReadLatest/ReadSnapshot are unsupported.
func NewNATS(conn *nats.Conn, kv jetstream.KeyValue, subject, latestKey string) *NATS {
	return &NATS{conn: conn, kv: kv, subject: subject, latestKey: latestKey}
}

func (n *NATS) Init(Context) error {
	sub, err := n.conn.Subscribe(n.subject, n.dispatch)
	if err != nil {
		return xerrors.Transient(fmt.Errorf("subscribe to %s: %w", n.subject, err), "topic.NATS", "Init")
	}
	n.mu.Lock()
	n.conn.Flush()
	n.mu.Unlock()
	_ = sub // subscription lives for the life of the connection; no explicit unsubscribe path needed
	return nil
}

func (n *NATS) dispatch(msg *nats.Msg) {
	rec := record.New(time.Now().UnixMilli(), msg.Data)

	n.mu.Lock()
	live := n.subs[:0]
	for _, s := range n.subs {
		if s.closed {
			continue
		}
		select {
		case s.ch <- []record.TopicRecord{rec}:
			live = append(live, s)
		default:
			// Slow subscriber: drop this snapshot rather than block the
			// publish path. Matches the ring/table block-vs-drop tradeoff
			// made at the topic level (§5), applied per-subscriber here.
			live = append(live, s)
		}
	}
	n.subs = live
	n.mu.Unlock()
}

func (n *NATS) Save(rec record.TopicRecord) error {
	if err := n.conn.Publish(n.subject, rec.Data); err != nil {
		return xerrors.Transient(fmt.Errorf("publish to %s: %w", n.subject, err), "topic.NATS", "Save")
	}

	if n.kv != nil && n.latestKey != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := n.kv.Put(ctx, n.latestKey, rec.Data); err != nil {
			return xerrors.Transient(fmt.Errorf("persist latest under %s: %w", n.latestKey, err), "topic.NATS", "Save")
		}
	}
	return nil
}

func (n *NATS) Read(mode ReadMode, params ReadParams) (ReadResult, error) {
	switch mode {
	case ReadLatest, ReadSnapshot:
		if n.kv == nil {
			return ReadResult{}, xerrors.Config(xerrors.ErrReadModeIncompatible, "topic.NATS", "Read")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		entry, err := n.kv.Get(ctx, n.latestKey)
		if err != nil {
			if err == jetstream.ErrKeyNotFound {
				return ReadResult{}, nil
			}
			return ReadResult{}, xerrors.Transient(fmt.Errorf("fetch latest under %s: %w", n.latestKey, err), "topic.NATS", "Read")
		}
		rec := record.New(time.Now().UnixMilli(), entry.Value())
		return ReadResult{Records: []record.TopicRecord{rec}}, nil

	case ReadSubscribe:
		if params.Snapshot == nil {
			return ReadResult{}, xerrors.Config(xerrors.ErrMissingConfigField, "topic.NATS", "Read")
		}
		n.mu.Lock()
		n.subs = append(n.subs, &natsSubscription{ch: params.Snapshot})
		n.mu.Unlock()
		return ReadResult{}, nil

	default:
		return ReadResult{}, xerrors.Config(xerrors.ErrReadModeIncompatible, "topic.NATS", "Read")
	}
}

func (n *NATS) SupportedReadModes() []ReadMode {
	modes := []ReadMode{ReadSubscribe}
	if n.kv != nil {
		modes = append(modes, ReadLatest, ReadSnapshot)
	}
	return modes
}
