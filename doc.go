// Package gauss implements a declarative, schema-aware data-processing
// pipeline engine: topics carry opaque-payload records, processors read
// and write them under a format codec and a resolved field-mapping, and a
// pipeline supervisor resolves plugins and drives the whole graph through
// its startup and shutdown lifecycle.
//
// # Architecture
//
//	┌──────────────────────────────────────────────┐
//	│              Pipeline Supervisor              │  Lifecycle: loading ->
//	│     (resolve plugins, wire topics, start)     │  resolved -> running ->
//	└──────────────────────────────────────────────┘  draining -> stopped
//	                     ↓ drives
//	┌──────────────────────────────────────────────┐
//	│   Processors (source / transform / sink)      │  Read/write topics
//	└──────────────────────────────────────────────┘  through a Framer + Codec
//	                     ↓ read/write
//	┌──────────────────────────────────────────────┐
//	│         Topics (ring / table / file)          │  Retain TopicRecord,
//	│        storage + backpressure policy          │  enforce read modes
//	└──────────────────────────────────────────────┘
//
// # Packages
//
//   - value, schema, record: the engine's core data model (Value, Row,
//     Schema, TopicRecord)
//   - codec: wire-format <-> Row conversion (JSON today, pluggable)
//   - converter: per-field type conversion (C4)
//   - mapping: schema-mapping resolution, the source-schema to
//     target-schema FieldMap compiler (C5)
//   - registry: the plugin registry (C1), JSON-Schema-validated
//     configuration to running instance
//   - topic: topic storage backends and their read-mode/backpressure
//     contracts (C6/C7)
//   - processor: the processor runtime - framing, source/sink/transform,
//     windowed joins (C8)
//   - executor: the per-record deserialize/convert/write path and the
//     batching discipline that decouples a buffered record's lifetime from
//     the Row it momentarily borrows (C10)
//   - supervisor: the pipeline supervisor driving startup/shutdown order
//     (C9)
//   - zerocopy: kernel-level bypass primitive resolution for file/socket
//     transfers (C11)
//   - config: the TOML-shaped declarative pipeline configuration
//   - obs: structured logging
//   - metric: Prometheus metrics and HTTP exposition
//   - xerrors: the engine's four-way error taxonomy (configuration,
//     encoding, transient, fatal)
//   - cmd/gaussd: the standalone pipeline binary
package gauss
