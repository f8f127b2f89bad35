// Package topic implements the Topic + Storage contract (C6/C7): a named
// opaque-byte bucket backed by a pluggable storage engine, plus the shared
// read-mode vocabulary and back-pressure policy every storage variant
// implements against. Grounded on
// original_source/libs/gauss-api/src/storage.rs (ReadMode, ReadParams,
// ReadResult, StorageContext, TopicStorage) and topic-engine/src/lib.rs for
// the subscriber fan-out model.
package topic

import (
	"github.com/gauss-project/gauss/codec"
	"github.com/gauss-project/gauss/mapping"
	"github.com/gauss-project/gauss/record"
)

// ReadMode names one of the five ways a consumer may read a topic.
type ReadMode string

const (
	ReadOffset    ReadMode = "offset"
	ReadLatest    ReadMode = "latest"
	ReadQuery     ReadMode = "query"
	ReadSnapshot  ReadMode = "snapshot"
	ReadSubscribe ReadMode = "subscribe"
)

// ReadParams carries every mode's parameters; only the fields relevant to
// the requested mode are consulted.
type ReadParams struct {
	Offset   uint64
	FromMs   int64
	ToMs     int64
	Limit    int
	Snapshot chan<- []record.TopicRecord // subscribe mode: delivery channel for successive snapshots
}

// ReadResult is the outcome of a Read call. NextOffset is meaningful only
// for offset/latest modes; it is the cursor a follow-up offset read should
// pass to continue where this one left off.
type ReadResult struct {
	Records    []record.TopicRecord
	NextOffset uint64
}

// BackpressurePolicy governs Save behavior once a storage reaches capacity.
type BackpressurePolicy string

const (
	PolicyBlock     BackpressurePolicy = "block"
	PolicyDrop      BackpressurePolicy = "drop"
	PolicyOverwrite BackpressurePolicy = "overwrite"
)

// Context is passed to Storage.Init (and optionally Reconfigure): the
// format serializer needed to decode payloads for keyed/columnar storages,
// and the resolved MapSchema for storages that render DDL or convert
// fields. Both are optional — a byte-opaque storage (ring, file) needs
// neither.
type Context struct {
	Serializer codec.Codec
	Mapping    *mapping.MapSchema
}

// Storage is the contract every topic backing engine implements.
type Storage interface {
	// Init is called once before any Save. A storage that needs a target
	// schema (table DDL, columnar insert) renders it from ctx.Mapping.Target.
	Init(ctx Context) error

	// Save accepts one record; may buffer. When capacity is exhausted the
	// configured policy decides: block waits until capacity frees, drop
	// discards the record and succeeds silently, overwrite evicts the
	// oldest record.
	Save(rec record.TopicRecord) error

	// Read serves mode if declared in SupportedReadModes, otherwise
	// returns a wrapped xerrors.ErrReadModeIncompatible.
	Read(mode ReadMode, params ReadParams) (ReadResult, error)

	SupportedReadModes() []ReadMode
}

// Reconfigurable is implemented by storages that support a live DDL/mapping
// update without a restart (§C.2 supplemented feature). Storages that don't
// support it simply don't implement this interface; callers type-assert.
type Reconfigurable interface {
	Reconfigure(ctx Context) error
}

// Topic binds a name to its backing Storage and the back-pressure policy
// processors see reflected in Save's blocking/non-blocking behavior.
type Topic struct {
	Name    string
	Storage Storage
	Policy  BackpressurePolicy
}

// AssertReadModeSupported enforces the Pipeline Supervisor's start-time
// check (§4.7 step 3): the requested read_mode must be among the topic's
// storage's supported_read_modes, otherwise this is start-time fatal.
func (t *Topic) AssertReadModeSupported(mode ReadMode) bool {
	for _, m := range t.Storage.SupportedReadModes() {
		if m == mode {
			return true
		}
	}
	return false
}
