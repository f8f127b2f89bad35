// Package supervisor implements the Pipeline Supervisor (C9): the
// deterministic startup sequence and reverse-order shutdown of §4.7.
// Grounded on service/component_manager.go's ComponentManager
// (startOrder/reverse-stop discipline, lifecycle state tracking) and
// generalized to Gauss's plugin-resolution -> topic-construction ->
// read-mode-assertion -> mapping-resolution -> wiring -> processor-start
// pipeline, coordinated with golang.org/x/sync/errgroup the way the
// platform's graph processor module launcher does.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gauss-project/gauss/mapping"
	"github.com/gauss-project/gauss/processor"
	"github.com/gauss-project/gauss/registry"
	"github.com/gauss-project/gauss/topic"
	"github.com/gauss-project/gauss/xerrors"
)

// State is the pipeline lifecycle of §4.10.
type State int

const (
	StateLoading State = iota
	StateResolved
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateResolved:
		return "resolved"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Subscription is one processor's declared read against a topic, carrying
// the per-subscriber overflow policy the supervisor wires at step 5.
type Subscription struct {
	TopicName string
	Mode      topic.ReadMode
	Policy    topic.BackpressurePolicy
}

// ProcessorSpec declares one processor to start: its name, its runtime
// instance, and the topic wiring it needs.
type ProcessorSpec struct {
	Name         string
	Proc         processor.Processor
	Subscription *Subscription // nil for a pure source
	TargetTopic  string        // topic this processor writes into, empty for a pure sink
}

// Pipeline holds the resolved set of topics, processors, and mappings for
// one running configuration.
type Pipeline struct {
	registry   *registry.Registry
	topics     map[string]*topic.Topic
	mappings   map[string]mapping.MapSchema // keyed by storage name, for storages with format+schema_map
	procs      []ProcessorSpec
	procByName map[string]ProcessorSpec

	logger *slog.Logger

	mu         sync.Mutex
	state      State
	startOrder []string
	cancels    map[string]context.CancelFunc
	wg         sync.WaitGroup
}

// New constructs a Pipeline bound to reg. Topics/processors are added via
// AddTopic/AddProcessor during the LOADING phase, then Start runs the
// §4.7 startup sequence.
func New(reg *registry.Registry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry:   reg,
		topics:     make(map[string]*topic.Topic),
		mappings:   make(map[string]mapping.MapSchema),
		procByName: make(map[string]ProcessorSpec),
		cancels:    make(map[string]context.CancelFunc),
		logger:     logger,
		state:      StateLoading,
	}
}

// AddTopic registers a constructed topic.Topic. Step 2 of §4.7.
func (p *Pipeline) AddTopic(t *topic.Topic) {
	p.topics[t.Name] = t
}

// AddProcessorMapping records the resolved MapSchema for a storage that
// declared format+schema_map, so Start's step 4 can look it up.
func (p *Pipeline) AddProcessorMapping(storageName string, ms mapping.MapSchema) {
	p.mappings[storageName] = ms
}

// AddProcessor registers a processor to start, with its topic wiring.
func (p *Pipeline) AddProcessor(spec ProcessorSpec) {
	p.procs = append(p.procs, spec)
	p.procByName[spec.Name] = spec
}

// Start runs the §4.7 sequence: (3) assert every subscription's read mode
// is supported, (5) wire reader/writer contexts, (6) start every
// processor concurrently via an errgroup bound to ctx. Step 1 (plugin
// resolution) and step 4 (mapping resolution) are expected to have
// already populated the registry/mappings via AddTopic/AddProcessorMapping
// before Start is called — they are declarative, not imperative, steps in
// this Go rendering.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateLoading {
		p.mu.Unlock()
		return xerrors.Fatal(fmt.Errorf("pipeline not in LOADING state"), "supervisor.Pipeline", "Start")
	}
	p.mu.Unlock()

	for _, spec := range p.procs {
		if spec.Subscription == nil {
			continue
		}
		t, ok := p.topics[spec.Subscription.TopicName]
		if !ok {
			return xerrors.Config(fmt.Errorf("processor %q subscribes to unknown topic %q", spec.Name, spec.Subscription.TopicName), "supervisor.Pipeline", "Start")
		}
		if !t.AssertReadModeSupported(spec.Subscription.Mode) {
			return xerrors.Config(fmt.Errorf("%w: topic %q does not support mode %q for processor %q", xerrors.ErrReadModeIncompatible, t.Name, spec.Subscription.Mode, spec.Name), "supervisor.Pipeline", "Start")
		}
	}

	p.mu.Lock()
	p.state = StateResolved
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	for _, spec := range p.procs {
		spec := spec
		procCtx := processor.Context{}
		if spec.Subscription != nil {
			t := p.topics[spec.Subscription.TopicName]
			procCtx.Reader = processor.NewTopicReader(t)
		}
		if spec.TargetTopic != "" {
			t, ok := p.topics[spec.TargetTopic]
			if !ok {
				return xerrors.Config(fmt.Errorf("processor %q targets unknown topic %q", spec.Name, spec.TargetTopic), "supervisor.Pipeline", "Start")
			}
			procCtx.Writer = processor.NewTopicWriter(t)
		}

		if err := spec.Proc.Init(procCtx); err != nil {
			return xerrors.Config(fmt.Errorf("initializing processor %q: %w", spec.Name, err), "supervisor.Pipeline", "Start")
		}

		runCtx, cancel := context.WithCancel(gctx)
		p.mu.Lock()
		p.cancels[spec.Name] = cancel
		p.startOrder = append(p.startOrder, spec.Name)
		p.mu.Unlock()

		p.wg.Add(1)
		g.Go(func() error {
			defer p.wg.Done()
			defer cancel()
			if err := spec.Proc.Run(runCtx); err != nil {
				p.logger.Error("processor exited with error", "processor", spec.Name, "error", err)
				if xerrors.IsFatal(err) {
					return err
				}
			}
			return nil
		})
	}

	p.mu.Lock()
	p.state = StateRunning
	p.mu.Unlock()

	go func() {
		_ = g.Wait()
		p.mu.Lock()
		if p.state == StateRunning {
			p.state = StateDraining
		}
		p.mu.Unlock()
	}()

	return nil
}

// Stop shuts down the processors in reverse start order: for each one it
// calls Stop and cancels its Run context, then moves to the next without
// waiting for it to drain. Processors added upstream-to-downstream are
// therefore stopped sinks first and sources last. Once every processor has
// been told to stop, Stop waits for all Run calls to return, then releases
// every plugin instance.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	p.state = StateDraining
	order := append([]string(nil), p.startOrder...)
	p.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		if spec, ok := p.procByName[name]; ok {
			if err := spec.Proc.Stop(); err != nil {
				p.logger.Warn("processor stop returned error", "processor", name, "error", err)
			}
		}
		p.mu.Lock()
		if cancel, ok := p.cancels[name]; ok {
			cancel()
		}
		p.mu.Unlock()
	}

	p.wg.Wait()
	p.registry.ReleaseAll()

	p.mu.Lock()
	p.state = StateStopped
	p.mu.Unlock()
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reconfigure applies ctx to the named topic's storage if it implements
// topic.Reconfigurable (§C.2 supplemented feature). Storages that don't
// support hot-reload report xerrors.ErrReconfigureUnsupported; an unknown
// topic name is a Configuration error.
func (p *Pipeline) Reconfigure(topicName string, ctx topic.Context) error {
	t, ok := p.topics[topicName]
	if !ok {
		return xerrors.Config(fmt.Errorf("reconfigure: unknown topic %q", topicName), "supervisor.Pipeline", "Reconfigure")
	}
	rc, ok := t.Storage.(topic.Reconfigurable)
	if !ok {
		return xerrors.Config(fmt.Errorf("%w: topic %q", xerrors.ErrReconfigureUnsupported, topicName), "supervisor.Pipeline", "Reconfigure")
	}
	return rc.Reconfigure(ctx)
}

// TopicNames returns every topic name the pipeline resolved, for a SIGHUP
// handler deciding which topics to attempt reconfiguration against.
func (p *Pipeline) TopicNames() []string {
	names := make([]string, 0, len(p.topics))
	for name := range p.topics {
		names = append(names, name)
	}
	return names
}
