// Package record defines TopicRecord, the engine's indivisible unit of
// data: an (ts_ms, opaque bytes) pair. The engine interprets ts_ms only;
// data is never inspected outside a storage that opted into deserialization.
package record

// TopicRecord is assigned ts_ms exactly once, at the moment a source or
// transform processor emits it, and is immutable afterward. It is owned by
// exactly one topic's storage for its lifetime — destroyed when evicted
// (ring), overwritten (table mode), or archived (file rotation).
type TopicRecord struct {
	TsMs int64
	Data []byte
}

// New constructs a TopicRecord. data is not copied; callers that need the
// record to own its bytes independently of a reused buffer must copy
// before calling New.
func New(tsMs int64, data []byte) TopicRecord {
	return TopicRecord{TsMs: tsMs, Data: data}
}

// Clone returns a TopicRecord with its own copy of data.
func (r TopicRecord) Clone() TopicRecord {
	return TopicRecord{TsMs: r.TsMs, Data: append([]byte(nil), r.Data...)}
}
