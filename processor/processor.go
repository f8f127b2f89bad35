// Package processor implements the Processor runtime (C8): source,
// transform, and sink variants over the Topic/Storage contract, the
// init/detect/handshake -> steady phase discipline, and the
// framed-vs-passthrough distinction. Grounded on
// original_source/libs/gauss-api/src/processor.rs (TopicReader, TopicWriter,
// TopicInspector, ProcessorContext, Processor) and the platform's
// component.LifecycleComponent state vocabulary for phase naming.
package processor

import (
	"context"

	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/topic"
)

// Phase names a processor's internal lifecycle stage. A processor may
// oscillate within Steady but never retreats to Phase1 once there (§4.10).
type Phase int

const (
	PhaseInit Phase = iota
	Phase1          // detect/handshake: may buffer, must not emit final records
	PhaseSteady
	PhaseStopping
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case Phase1:
		return "phase1"
	case PhaseSteady:
		return "steady"
	case PhaseStopping:
		return "stopping"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Reader reads records from a source topic in a declared read mode.
type Reader interface {
	Read(mode topic.ReadMode, params topic.ReadParams) (topic.ReadResult, error)
}

// Writer emits records into a target topic, honoring the topic's
// back-pressure policy.
type Writer interface {
	Write(rec record.TopicRecord) error
}

// Inspector is the supplemented TopicInspector capability (§C.4):
// processors that need to discover or query topics outside their declared
// reader/writer (e.g. a window-join processor correlating two source
// topics) use it instead of holding ad hoc references.
type Inspector interface {
	Topics() []string
	Query(topicName string, params topic.ReadParams) (topic.ReadResult, error)
}

// Context bundles the reader/writer/inspector a Processor is constructed
// with. Source processors have only Writer; sink processors have only
// Reader; transform processors may have both; any processor may have
// Inspector.
type Context struct {
	Reader    Reader
	Writer    Writer
	Inspector Inspector
}

// Processor is the contract every source/transform/sink plugin implements.
type Processor interface {
	// Init prepares internal state from ctx; called once before Run.
	Init(ctx Context) error
	// Run executes until ctx is canceled or an unrecoverable error occurs.
	// A framed processor assigns ts_ms as it emits each record; a
	// passthrough processor never calls Run's ctx Writer at all, routing
	// through the zero-copy bypass instead.
	Run(ctx context.Context) error
	// Stop requests orderly shutdown; Run should return once drained.
	Stop() error
}

// topicWriter adapts a topic.Topic as a Writer, honoring its Policy via
// topic.Storage.Save's own blocking/dropping/overwriting behavior.
type topicWriter struct{ t *topic.Topic }

func NewTopicWriter(t *topic.Topic) Writer { return topicWriter{t: t} }

func (w topicWriter) Write(rec record.TopicRecord) error { return w.t.Storage.Save(rec) }

// topicReader adapts a topic.Topic as a Reader.
type topicReader struct{ t *topic.Topic }

func NewTopicReader(t *topic.Topic) Reader { return topicReader{t: t} }

func (r topicReader) Read(mode topic.ReadMode, params topic.ReadParams) (topic.ReadResult, error) {
	return r.t.Storage.Read(mode, params)
}
