// Package registry implements the Plugin Registry (C1): resolving names
// from declarative configuration to runnable plugin instances of four
// kinds — storage, format, converter, processor. Adapted from the
// platform's component/registry.go Factory/Registration pattern,
// generalized from its input/processor/output/storage type vocabulary to
// Gauss's four plugin kinds and stripped of port/resource-conflict
// tracking, which has no Gauss analogue.
package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/gauss-project/gauss/xerrors"
)

// Kind names one of the four plugin categories a factory can be registered
// under.
type Kind string

const (
	KindStorage   Kind = "storage"
	KindFormat    Kind = "format"
	KindConverter Kind = "converter"
	KindProcessor Kind = "processor"
)

// Handle is an opaque reference to a loaded plugin instance.
type Handle string

// Dependencies is the set of runtime services a factory may need; passed
// through unchanged to every factory call.
type Dependencies interface{}

// Factory constructs a plugin instance from a raw JSON config blob. It must
// perform no I/O beyond parsing config; I/O happens in the plugin's own
// lifecycle methods once loaded.
type Factory func(rawConfig json.RawMessage, deps Dependencies) (any, error)

// Registration is the static metadata + constructor bound to one plugin
// name within one Kind namespace.
type Registration struct {
	Kind        Kind
	Name        string
	Description string
	Version     string
	// ConfigSchema is a JSON Schema document (as raw JSON text) validated
	// against a config blob before Factory runs. Empty skips validation.
	ConfigSchema string
	Factory      Factory
}

// CapabilityDeclarer is implemented by plugins that need to report
// discovered capabilities at load time — storages report their supported
// read modes this way, per §4.1.
type CapabilityDeclarer interface {
	Capabilities() map[string]any
}

type instance struct {
	handle       Handle
	registration *Registration
	plugin       any
}

// Registry is the process-wide plugin registry: thread-safe registration
// of factories and thread-safe load/release of instances.
type Registry struct {
	mu        sync.RWMutex
	factories map[Kind]map[string]*Registration
	instances map[Handle]*instance
	loadOrder []Handle
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		factories: make(map[Kind]map[string]*Registration),
		instances: make(map[Handle]*instance),
	}
}

// RegisterFactory makes reg's plugin constructible via Load(reg.Kind,
// reg.Name, ...). Returns a Configuration error if the (kind, name) pair is
// already registered.
func (r *Registry) RegisterFactory(reg *Registration) error {
	if reg == nil || reg.Factory == nil || reg.Name == "" || reg.Kind == "" {
		return xerrors.Config(fmt.Errorf("registration missing kind, name, or factory"), "registry.Registry", "RegisterFactory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.factories[reg.Kind]
	if !ok {
		byName = make(map[string]*Registration)
		r.factories[reg.Kind] = byName
	}
	if _, exists := byName[reg.Name]; exists {
		return xerrors.Config(fmt.Errorf("factory %s/%s already registered", reg.Kind, reg.Name), "registry.Registry", "RegisterFactory")
	}
	byName[reg.Name] = reg
	return nil
}

// HasConverter reports whether a converter factory named name is
// registered — satisfies mapping.ConverterLookup so the mapping resolver
// can validate converter references at resolve time.
func (r *Registry) HasConverter(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[KindConverter][name]
	return ok
}

// Load resolves (kind, name) to its factory, validates configBlob against
// the registration's ConfigSchema if present, runs the factory, and
// returns a Handle plus any declared capabilities. Unknown name,
// constructor error, or schema validation failure are all start-time
// fatal per §4.1.
func (r *Registry) Load(kind Kind, name string, configBlob json.RawMessage, deps Dependencies) (Handle, map[string]any, error) {
	r.mu.RLock()
	reg, ok := r.factories[kind][name]
	r.mu.RUnlock()
	if !ok {
		return "", nil, xerrors.Config(fmt.Errorf("%w: %s/%s", xerrors.ErrUnknownPlugin, kind, name), "registry.Registry", "Load")
	}

	if reg.ConfigSchema != "" {
		if err := validateConfig(reg.ConfigSchema, configBlob); err != nil {
			return "", nil, xerrors.Config(fmt.Errorf("config validation for %s/%s: %w", kind, name, err), "registry.Registry", "Load")
		}
	}

	plugin, err := reg.Factory(configBlob, deps)
	if err != nil {
		return "", nil, xerrors.Config(fmt.Errorf("constructing %s/%s: %w", kind, name, err), "registry.Registry", "Load")
	}

	handle := Handle(uuid.NewString())
	inst := &instance{handle: handle, registration: reg, plugin: plugin}

	r.mu.Lock()
	r.instances[handle] = inst
	r.loadOrder = append(r.loadOrder, handle)
	r.mu.Unlock()

	var caps map[string]any
	if cd, ok := plugin.(CapabilityDeclarer); ok {
		caps = cd.Capabilities()
	}
	return handle, caps, nil
}

// Instance returns the plugin value behind handle.
func (r *Registry) Instance(handle Handle) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[handle]
	if !ok {
		return nil, false
	}
	return inst.plugin, true
}

// Release runs handle's destructor (io.Closer.Close, if implemented) and
// removes it from the registry. Release never fails per §4.1: a Close
// error is swallowed rather than propagated, since the instance is being
// torn down regardless.
func (r *Registry) Release(handle Handle) {
	r.mu.Lock()
	inst, ok := r.instances[handle]
	if ok {
		delete(r.instances, handle)
		for i, h := range r.loadOrder {
			if h == handle {
				r.loadOrder = append(r.loadOrder[:i], r.loadOrder[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	if closer, ok := inst.plugin.(io.Closer); ok {
		_ = closer.Close()
	}
}

// ReleaseAll releases every currently loaded instance in load-reverse
// order, the shutdown discipline §4.1 requires.
func (r *Registry) ReleaseAll() {
	r.mu.RLock()
	order := append([]Handle(nil), r.loadOrder...)
	r.mu.RUnlock()

	for i := len(order) - 1; i >= 0; i-- {
		r.Release(order[i])
	}
}

func validateConfig(schemaJSON string, configBlob json.RawMessage) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	if len(configBlob) == 0 {
		configBlob = json.RawMessage("{}")
	}
	docLoader := gojsonschema.NewBytesLoader(configBlob)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return err
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%v", msgs)
	}
	return nil
}
