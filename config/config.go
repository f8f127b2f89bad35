// Package config implements the engine's declarative TOML configuration
// (§6): top-level [[converters]], [[formats]], [[schema_maps]], [[topics]],
// [[processors]] arrays, loaded with github.com/BurntSushi/toml the way
// the platform config package loaded JSON, and guarded behind the same
// SafeConfig read/update discipline (RWMutex + validate-before-swap) as
// config.SafeConfig did. No copy is made: Get hands out the shared *Config.
package config

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/gauss-project/gauss/xerrors"
)

// WriteFullPolicy names storage_config's write_full back-pressure choice.
type WriteFullPolicy string

const (
	WriteFullBlock     WriteFullPolicy = "block"
	WriteFullDrop      WriteFullPolicy = "drop"
	WriteFullOverwrite WriteFullPolicy = "overwrite"
)

// Framing names a processor input/output's framing envelope.
type Framing string

const (
	FramingNewline           Framing = "newline"
	FramingLengthPrefixed    Framing = "length_prefixed"
	FramingFixedSize         Framing = "fixed_size"
	FramingAvroContainer     Framing = "avro_container"
	FramingArrowIPCStreaming Framing = "arrow_ipc_streaming"
)

// PrefixType names length_prefixed framing's width/endianness encoding.
type PrefixType string

const (
	PrefixU32BE  PrefixType = "u32be"
	PrefixU16BE  PrefixType = "u16be"
	PrefixVarint PrefixType = "varint"
)

// ConverterConfig is one [[converters]] entry: a named field-converter
// plugin instance.
type ConverterConfig struct {
	Name   string         `toml:"name"`
	Plugin string         `toml:"plugin"`
	Config map[string]any `toml:"config"`
}

// FormatConfig is one [[formats]] entry: a named format-codec plugin
// instance.
type FormatConfig struct {
	Name   string         `toml:"name"`
	Plugin string         `toml:"plugin"`
	Config map[string]any `toml:"config"`
}

// SchemaMapConfig is one [[schema_maps]] entry: the mapping script plus the
// source/target schema names it resolves between.
type SchemaMapConfig struct {
	Name   string `toml:"name"`
	Source string `toml:"source"`
	Target string `toml:"target"`
	Script string `toml:"script"`
}

// SchemaFieldConfig declares one field of an inline schema block.
type SchemaFieldConfig struct {
	Name       string         `toml:"name"`
	Type       string         `toml:"type"`
	TypeAttrs  map[string]any `toml:"type_attrs"`
	Properties map[string]any `toml:"properties"`
}

// StorageConfig is a topic's storage_config block. cmd/gaussd passes only
// storage_size, write_full, key_field and extra.path on to the storage
// plugin; the other fields are parsed but not forwarded.
type StorageConfig struct {
	StorageSize int64               `toml:"storage_size"`
	WriteFull   WriteFullPolicy     `toml:"write_full"`
	Mode        string              `toml:"mode"`
	Format      string              `toml:"format"`
	KeyField    string              `toml:"key_field"`
	Schema      []SchemaFieldConfig `toml:"schema"`
	SchemaMap   string              `toml:"schema_map"`
	Host        string              `toml:"host"`
	TTL         string              `toml:"ttl"`
	Extra       map[string]any      `toml:"extra"`
}

// TopicConfig is one [[topics]] entry.
type TopicConfig struct {
	Name          string        `toml:"name"`
	Storage       string        `toml:"storage"`
	StorageConfig StorageConfig `toml:"storage_config"`
}

// ProcessorEndpointConfig is a processor's source or target binding.
type ProcessorEndpointConfig struct {
	Topic string `toml:"topic"`
	Read  string `toml:"read"`
}

// ProcessorIOConfig is one side (input or output) of a processor's
// transport configuration.
type ProcessorIOConfig struct {
	Format     string     `toml:"format"`
	Framing    Framing    `toml:"framing"`
	Delimiter  string     `toml:"delimiter"`
	PrefixType PrefixType `toml:"prefix_type"`
	FrameSize  int        `toml:"frame_size"`
}

// ProcessorRuntimeConfig is a processor's config block: input/output
// transport shape.
type ProcessorRuntimeConfig struct {
	Input  ProcessorIOConfig `toml:"input"`
	Output ProcessorIOConfig `toml:"output"`
}

// ProcessorBatchConfig configures a "transform" processor's buffered
// drain (§4.8/§4.9). Zero values are filled with engine defaults.
type ProcessorBatchConfig struct {
	Capacity   int `toml:"capacity"`
	Threshold  int `toml:"threshold"`
	IntervalMS int `toml:"interval_ms"`
	Workers    int `toml:"workers"`
}

// ProcessorConfig is one [[processors]] entry. SchemaMap names a
// [[schema_maps]] entry and is required when Plugin is "transform"; Batch
// is only consulted for that plugin too.
type ProcessorConfig struct {
	Name      string                  `toml:"name"`
	Plugin    string                  `toml:"plugin"`
	Source    ProcessorEndpointConfig `toml:"source"`
	Target    ProcessorEndpointConfig `toml:"target"`
	SchemaMap string                  `toml:"schema_map"`
	Batch     ProcessorBatchConfig    `toml:"batch"`
	Config    ProcessorRuntimeConfig  `toml:"config"`
}

// Config is the top-level declarative configuration document.
type Config struct {
	Converters []ConverterConfig `toml:"converters"`
	Formats    []FormatConfig    `toml:"formats"`
	SchemaMaps []SchemaMapConfig `toml:"schema_maps"`
	Topics     []TopicConfig     `toml:"topics"`
	Processors []ProcessorConfig `toml:"processors"`
}

// Load parses a TOML document into a Config and validates it. A parse
// error or a failed Validate is always a Configuration-class error,
// matching the control surface's "non-zero exit for configuration
// errors" contract (§6).
func Load(data []byte) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
		return nil, xerrors.Config(fmt.Errorf("parsing configuration: %w", err), "config", "Load")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every named reference is non-empty and every enum field
// carries a recognized value, surfacing the first problem as a
// Configuration error. Plugin existence itself is checked later by the
// registry at Load time (§4.1); this pass only catches malformed
// declarations.
func (c *Config) Validate() error {
	names := make(map[string]bool)
	for _, conv := range c.Converters {
		if conv.Name == "" || conv.Plugin == "" {
			return xerrors.Config(fmt.Errorf("converter entry missing name or plugin"), "config.Config", "Validate")
		}
		names["converter:"+conv.Name] = true
	}
	for _, f := range c.Formats {
		if f.Name == "" || f.Plugin == "" {
			return xerrors.Config(fmt.Errorf("format entry missing name or plugin"), "config.Config", "Validate")
		}
		names["format:"+f.Name] = true
	}
	for _, sm := range c.SchemaMaps {
		if sm.Name == "" || sm.Script == "" {
			return xerrors.Config(fmt.Errorf("%w: schema_map %q missing script", xerrors.ErrMissingConfigField, sm.Name), "config.Config", "Validate")
		}
		names["schema_map:"+sm.Name] = true
	}
	for _, topic := range c.Topics {
		if topic.Name == "" || topic.Storage == "" {
			return xerrors.Config(fmt.Errorf("topic entry missing name or storage plugin"), "config.Config", "Validate")
		}
		switch topic.StorageConfig.WriteFull {
		case "", WriteFullBlock, WriteFullDrop, WriteFullOverwrite:
		default:
			return xerrors.Config(fmt.Errorf("topic %q: unrecognized write_full policy %q", topic.Name, topic.StorageConfig.WriteFull), "config.Config", "Validate")
		}
	}
	for _, p := range c.Processors {
		if p.Name == "" || p.Plugin == "" {
			return xerrors.Config(fmt.Errorf("processor entry missing name or plugin"), "config.Config", "Validate")
		}
		if p.Plugin == "transform" && p.SchemaMap == "" {
			return xerrors.Config(fmt.Errorf("processor %q: plugin \"transform\" requires schema_map", p.Name), "config.Config", "Validate")
		}
		if err := validateFraming(p.Config.Input.Framing); err != nil {
			return xerrors.Config(fmt.Errorf("processor %q input: %w", p.Name, err), "config.Config", "Validate")
		}
		if err := validateFraming(p.Config.Output.Framing); err != nil {
			return xerrors.Config(fmt.Errorf("processor %q output: %w", p.Name, err), "config.Config", "Validate")
		}
	}
	return nil
}

func validateFraming(f Framing) error {
	switch f {
	case "", FramingNewline, FramingLengthPrefixed, FramingFixedSize, FramingAvroContainer, FramingArrowIPCStreaming:
		return nil
	default:
		return fmt.Errorf("unrecognized framing %q", f)
	}
}

// TopicByName looks up a declared topic by name.
func (c *Config) TopicByName(name string) (TopicConfig, bool) {
	for _, t := range c.Topics {
		if t.Name == name {
			return t, true
		}
	}
	return TopicConfig{}, false
}

// SafeConfig guards a Config behind an RWMutex so a running pipeline can
// read the active configuration while a reload validates and swaps in a
// new one, the same discipline the platform's SafeConfig applied to its
// JSON documents.
type SafeConfig struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewSafeConfig wraps cfg for concurrent access.
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{cfg: cfg}
}

// Get returns the currently active configuration. Callers must not mutate
// the returned value; it is shared.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.cfg
}

// Update validates cfg and, if valid, atomically makes it the active
// configuration.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return xerrors.Config(fmt.Errorf("config cannot be nil"), "config.SafeConfig", "Update")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cfg = cfg
	return nil
}
