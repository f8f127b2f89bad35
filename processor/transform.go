package processor

import (
	"context"
	"time"

	"github.com/gauss-project/gauss/codec"
	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/topic"
	"github.com/gauss-project/gauss/xerrors"
)

// TransformFunc is the per-record logic a Transform processor runs between
// decode and re-encode. Returning ok=false drops the record (e.g. it fell
// outside a join window).
type TransformFunc func(in record.TopicRecord) (out record.TopicRecord, ok bool, err error)

// Transform reads from a source topic in a declared mode, applies fn, and
// writes survivors to its target topic. Grounded on §4.6's transform
// variant: the processor never hard-codes codec knowledge — it is handed
// one at construction, per §4.2's "codec is stateless except for its
// schema/config" contract.
type Transform struct {
	mode   topic.ReadMode
	poll   time.Duration
	fn     TransformFunc
	reader Reader
	writer Writer
	cursor uint64
	phase  Phase

	stateTopic *StateStore // nil for a stateless transform
}

// StateStore is a stateful processor's designated state topic, running in
// table mode, keyed by the state key (§4.6 "stateful processors").
// Transform only holds the reference: its Init does not load the snapshot
// and its drain does not persist into it, so a Transform's state is not
// restored across restarts.
type StateStore struct {
	storage topic.Storage
	codecC  codec.Codec
}

// NewStateStore binds a table-mode topic's storage as a processor's state
// topic.
func NewStateStore(storage topic.Storage, c codec.Codec) (*StateStore, error) {
	supported := false
	for _, m := range storage.SupportedReadModes() {
		if m == topic.ReadSnapshot {
			supported = true
		}
	}
	if !supported {
		return nil, xerrors.Config(xerrors.ErrReadModeIncompatible, "processor.NewStateStore", "construct")
	}
	return &StateStore{storage: storage, codecC: c}, nil
}

// LoadSnapshot returns the records of the state topic's current snapshot.
// Transform.Init does not call it.
func (s *StateStore) LoadSnapshot() ([]record.TopicRecord, error) {
	result, err := s.storage.Read(topic.ReadSnapshot, topic.ReadParams{})
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// Persist writes one state-key record into the state topic's table.
func (s *StateStore) Persist(rec record.TopicRecord) error {
	return s.storage.Save(rec)
}

// NewTransform constructs a stateless Transform.
func NewTransform(mode topic.ReadMode, poll time.Duration, fn TransformFunc) *Transform {
	return &Transform{mode: mode, poll: poll, fn: fn, phase: PhaseInit}
}

// WithState attaches a StateStore to the Transform. The Transform keeps
// the reference but does not read from or write to it.
func (t *Transform) WithState(store *StateStore) *Transform {
	t.stateTopic = store
	return t
}

func (t *Transform) Init(ctx Context) error {
	if ctx.Reader == nil || ctx.Writer == nil {
		return xerrors.Config(xerrors.ErrMissingConfigField, "processor.Transform", "Init")
	}
	t.reader = ctx.Reader
	t.writer = ctx.Writer
	t.phase = Phase1
	return nil
}

func (t *Transform) Run(ctx context.Context) error {
	t.phase = PhaseSteady
	defer func() { t.phase = PhaseStopped }()

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := t.drain(); err != nil && !xerrors.IsTransient(err) {
				return err
			}
		}
	}
}

func (t *Transform) drain() error {
	result, err := t.reader.Read(t.mode, topic.ReadParams{Offset: t.cursor})
	if err != nil {
		return err
	}
	for _, rec := range result.Records {
		out, ok, err := t.fn(rec)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := t.writer.Write(out); err != nil {
			return err
		}
	}
	t.cursor = result.NextOffset
	return nil
}

func (t *Transform) Stop() error {
	t.phase = PhaseStopping
	return nil
}
