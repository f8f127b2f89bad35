package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gauss-project/gauss/codec"
	gconfig "github.com/gauss-project/gauss/config"
	"github.com/gauss-project/gauss/converter"
	"github.com/gauss-project/gauss/mapping"
	"github.com/gauss-project/gauss/processor"
	"github.com/gauss-project/gauss/registry"
	"github.com/gauss-project/gauss/schema"
	"github.com/gauss-project/gauss/supervisor"
	"github.com/gauss-project/gauss/topic"
	"github.com/gauss-project/gauss/xerrors"
)

// builtinConverters adapts converter.Builtins() to satisfy both
// mapping.ConverterLookup (existence check at resolve time) and
// executor.ConverterLookup (instance lookup on the hot path), so the same
// registry backs schema-mapping resolution and batch execution.
type builtinConverters map[string]converter.FieldConverter

func (b builtinConverters) HasConverter(name string) bool {
	_, ok := b[name]
	return ok
}

func (b builtinConverters) Converter(name string) (converter.FieldConverter, bool) {
	c, ok := b[name]
	return c, ok
}

// registerBuiltinPlugins wires the engine's in-tree storage/converter
// plugins into reg, the way a real deployment would register out-of-tree
// plugin artifacts at process start (§4.1).
func registerBuiltinPlugins(reg *registry.Registry) error {
	for name, conv := range converter.Builtins() {
		conv := conv
		err := reg.RegisterFactory(&registry.Registration{
			Kind: registry.KindConverter,
			Name: name,
			Factory: func(json.RawMessage, registry.Dependencies) (any, error) {
				return conv, nil
			},
		})
		if err != nil {
			return err
		}
	}

	storages := []struct {
		name    string
		factory registry.Factory
	}{
		{"ring", ringFactory},
		{"table", tableFactory},
		{"file", fileFactory},
	}
	for _, s := range storages {
		if err := reg.RegisterFactory(&registry.Registration{Kind: registry.KindStorage, Name: s.name, Factory: s.factory}); err != nil {
			return err
		}
	}
	return nil
}

type storageConfigBlob struct {
	StorageSize int64  `json:"storage_size"`
	WriteFull   string `json:"write_full"`
	KeyField    string `json:"key_field"`
	Path        string `json:"path"`
}

func ringFactory(raw json.RawMessage, _ registry.Dependencies) (any, error) {
	var blob storageConfigBlob
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &blob); err != nil {
			return nil, err
		}
	}
	if blob.StorageSize <= 0 {
		blob.StorageSize = 10000
	}
	return topic.NewRing(int(blob.StorageSize), policyFromString(blob.WriteFull)), nil
}

func tableFactory(raw json.RawMessage, _ registry.Dependencies) (any, error) {
	var blob storageConfigBlob
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &blob); err != nil {
			return nil, err
		}
	}
	if blob.KeyField == "" {
		return nil, xerrors.Config(xerrors.ErrMissingConfigField, "gaussd.tableFactory", "key_field")
	}
	return topic.NewTable(blob.KeyField), nil
}

func fileFactory(raw json.RawMessage, _ registry.Dependencies) (any, error) {
	var blob storageConfigBlob
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &blob); err != nil {
			return nil, err
		}
	}
	if blob.Path == "" {
		return nil, xerrors.Config(xerrors.ErrMissingConfigField, "gaussd.fileFactory", "path")
	}
	return topic.NewFileStorage(blob.Path)
}

func policyFromString(s string) topic.BackpressurePolicy {
	switch gconfig.WriteFullPolicy(s) {
	case gconfig.WriteFullDrop:
		return topic.PolicyDrop
	case gconfig.WriteFullOverwrite:
		return topic.PolicyOverwrite
	default:
		return topic.PolicyBlock
	}
}

// resolveConverters builds the name->FieldConverter table schema-mapping
// resolution and batch execution share. Every declared
// [[converters]] entry is loaded through the plugin registry keyed by its
// own Name (so a deployment may bind the same builtin Plugin under
// multiple aliases, or none at all — the builtin names themselves remain
// available as a fallback).
func resolveConverters(entries []gconfig.ConverterConfig, reg *registry.Registry) (builtinConverters, error) {
	out := make(builtinConverters, len(converter.Builtins())+len(entries))
	for name, conv := range converter.Builtins() {
		out[name] = conv
	}
	for _, ce := range entries {
		raw, err := json.Marshal(ce.Config)
		if err != nil {
			return nil, err
		}
		handle, _, err := reg.Load(registry.KindConverter, ce.Plugin, raw, nil)
		if err != nil {
			return nil, err
		}
		inst, _ := reg.Instance(handle)
		conv, ok := inst.(converter.FieldConverter)
		if !ok {
			return nil, xerrors.Config(fmt.Errorf("plugin %q did not produce a converter.FieldConverter", ce.Plugin), "gaussd.resolveConverters", "construct")
		}
		out[ce.Name] = conv
	}
	return out, nil
}

func schemaFromConfig(fields []gconfig.SchemaFieldConfig) schema.Schema {
	sch := schema.Schema{Fields: make([]schema.Field, 0, len(fields))}
	for _, f := range fields {
		sch.Fields = append(sch.Fields, schema.Field{
			Name: f.Name,
			Type: schema.FieldType{Name: f.Type, Attrs: f.TypeAttrs},
		})
	}
	return sch
}

// buildPipeline constructs topics and processors from cfg and returns a
// supervisor.Pipeline ready to Start. This renders §4.7 steps 1-2
// (plugin resolution, topic construction) for the builtin plugin set;
// steps 3-6 are performed by Pipeline.Start itself.
func buildPipeline(cfg *gconfig.Config, reg *registry.Registry) (*supervisor.Pipeline, error) {
	if err := registerBuiltinPlugins(reg); err != nil {
		return nil, err
	}

	converters, err := resolveConverters(cfg.Converters, reg)
	if err != nil {
		return nil, err
	}

	pipeline := supervisor.New(reg, nil)

	topicStorages := make(map[string]*topic.Topic, len(cfg.Topics))
	topicSchemas := make(map[string]schema.Schema, len(cfg.Topics))
	for _, tc := range cfg.Topics {
		blob := storageConfigBlob{
			StorageSize: tc.StorageConfig.StorageSize,
			WriteFull:   string(tc.StorageConfig.WriteFull),
			KeyField:    tc.StorageConfig.KeyField,
		}
		if host, ok := tc.StorageConfig.Extra["path"].(string); ok {
			blob.Path = host
		}
		raw, err := json.Marshal(blob)
		if err != nil {
			return nil, err
		}

		handle, _, err := reg.Load(registry.KindStorage, tc.Storage, raw, nil)
		if err != nil {
			return nil, err
		}
		inst, _ := reg.Instance(handle)
		storage, ok := inst.(topic.Storage)
		if !ok {
			return nil, xerrors.Config(fmt.Errorf("plugin %q did not produce a topic.Storage", tc.Storage), "gaussd.buildPipeline", "topics")
		}

		sch := schemaFromConfig(tc.StorageConfig.Schema)
		var codecC codec.Codec
		if len(sch.Fields) > 0 {
			codecC = codec.NewJSONCodec(sch)
		}
		if err := storage.Init(topic.Context{Serializer: codecC}); err != nil {
			return nil, err
		}

		t := &topic.Topic{Name: tc.Name, Storage: storage, Policy: policyFromString(string(tc.StorageConfig.WriteFull))}
		topicStorages[tc.Name] = t
		topicSchemas[tc.Name] = sch
		pipeline.AddTopic(t)
	}

	for _, pc := range cfg.Processors {
		spec, err := buildProcessorSpec(pc, cfg, topicStorages, topicSchemas, converters)
		if err != nil {
			return nil, err
		}
		pipeline.AddProcessor(spec)
	}

	return pipeline, nil
}

func buildProcessorSpec(pc gconfig.ProcessorConfig, cfg *gconfig.Config, topics map[string]*topic.Topic, schemas map[string]schema.Schema, converters builtinConverters) (supervisor.ProcessorSpec, error) {
	var sub *supervisor.Subscription
	if pc.Source.Topic != "" {
		if _, ok := topics[pc.Source.Topic]; !ok {
			return supervisor.ProcessorSpec{}, xerrors.Config(fmt.Errorf("processor %q: unknown source topic %q", pc.Name, pc.Source.Topic), "gaussd.buildProcessorSpec", "source")
		}
		sub = &supervisor.Subscription{TopicName: pc.Source.Topic, Mode: topic.ReadMode(pc.Source.Read)}
	}

	proc, err := newProcessorInstance(pc, cfg, schemas, converters)
	if err != nil {
		return supervisor.ProcessorSpec{}, err
	}

	return supervisor.ProcessorSpec{
		Name:         pc.Name,
		Proc:         proc,
		Subscription: sub,
		TargetTopic:  pc.Target.Topic,
	}, nil
}

// newProcessorInstance constructs the in-tree processor variant named by
// pc.Plugin. "source" reads from os.Stdin and "sink" writes to os.Stdout —
// gaussd's stock transport for a standalone binary; "transform" has no
// external transport at all, moving records entirely topic-to-topic
// through the schema-mapping resolver and batch executor (§4.3/§4.8/§4.9).
// A deployment embedding the engine as a library wires its own transports
// directly via the processor package instead of going through
// configuration.
func newProcessorInstance(pc gconfig.ProcessorConfig, cfg *gconfig.Config, schemas map[string]schema.Schema, converters builtinConverters) (processor.Processor, error) {
	pollInterval := 50 * time.Millisecond

	switch pc.Plugin {
	case "source":
		framer, err := framerFor(pc.Config.Input)
		if err != nil {
			return nil, err
		}
		return processor.NewSource(os.Stdin, framer, nil), nil
	case "sink":
		framer, err := framerFor(pc.Config.Output)
		if err != nil {
			return nil, err
		}
		sourceSchema := schemas[pc.Source.Topic]
		c, err := codecFor(pc.Config.Output, sourceSchema)
		if err != nil {
			return nil, err
		}
		mode := topic.ReadMode(pc.Source.Read)
		if mode == "" {
			mode = topic.ReadOffset
		}
		return processor.NewSink(os.Stdout, framer, c, mode, pollInterval, nil), nil
	case "transform":
		return newTransformInstance(pc, cfg, schemas, converters, pollInterval)
	default:
		return nil, xerrors.Config(fmt.Errorf("%w: processor plugin %q", xerrors.ErrUnknownPlugin, pc.Plugin), "gaussd.newProcessorInstance", "construct")
	}
}

// newTransformInstance resolves pc.SchemaMap against the source and
// target topics' declared schemas and builds the MappedBatch processor
// that runs it (§4.3 schema-mapping resolution feeding §4.8/§4.9 batch
// execution).
func newTransformInstance(pc gconfig.ProcessorConfig, cfg *gconfig.Config, schemas map[string]schema.Schema, converters builtinConverters, pollInterval time.Duration) (processor.Processor, error) {
	var smc *gconfig.SchemaMapConfig
	for i := range cfg.SchemaMaps {
		if cfg.SchemaMaps[i].Name == pc.SchemaMap {
			smc = &cfg.SchemaMaps[i]
			break
		}
	}
	if smc == nil {
		return nil, xerrors.Config(fmt.Errorf("processor %q: unknown schema_map %q", pc.Name, pc.SchemaMap), "gaussd.newTransformInstance", "construct")
	}

	sourceSchema := schemas[pc.Source.Topic]
	targetSchema := schemas[pc.Target.Topic]

	ms, err := mapping.Resolve(sourceSchema, targetSchema, smc.Script, converters)
	if err != nil {
		return nil, err
	}

	sourceCodec := codec.NewJSONCodec(sourceSchema)
	targetCodec := codec.NewJSONCodec(ms.Target)

	mode := topic.ReadMode(pc.Source.Read)
	if mode == "" {
		mode = topic.ReadOffset
	}

	batchCfg := processor.BatchConfig{
		Capacity:  pc.Batch.Capacity,
		Threshold: pc.Batch.Threshold,
		Interval:  time.Duration(pc.Batch.IntervalMS) * time.Millisecond,
		Workers:   pc.Batch.Workers,
	}
	if batchCfg.Capacity <= 0 {
		batchCfg.Capacity = 4096
	}
	if batchCfg.Threshold <= 0 {
		batchCfg.Threshold = 256
	}
	if batchCfg.Interval <= 0 {
		batchCfg.Interval = time.Second
	}
	if batchCfg.Workers <= 0 {
		batchCfg.Workers = 4
	}

	return processor.NewMappedBatch(mode, pollInterval, sourceCodec, targetCodec, ms, converters, batchCfg, nil), nil
}

func framerFor(io gconfig.ProcessorIOConfig) (processor.Framer, error) {
	switch io.Framing {
	case "", gconfig.FramingNewline:
		return processor.NewlineFramer{}, nil
	case gconfig.FramingLengthPrefixed:
		width := io.FrameSize
		if width == 0 {
			width = 4
		}
		return processor.LengthPrefixedFramer{PrefixWidth: width, Order: processor.BigEndian}, nil
	case gconfig.FramingFixedSize:
		return processor.FixedSizeFramer{Size: io.FrameSize}, nil
	default:
		return nil, xerrors.Config(fmt.Errorf("framing %q has no in-tree implementation", io.Framing), "gaussd.framerFor", "construct")
	}
}

func codecFor(io gconfig.ProcessorIOConfig, sch schema.Schema) (codec.Codec, error) {
	if io.Format != "json" && io.Format != "" {
		return nil, xerrors.Config(fmt.Errorf("format %q has no in-tree codec", io.Format), "gaussd.codecFor", "construct")
	}
	return codec.NewJSONCodec(sch), nil
}
