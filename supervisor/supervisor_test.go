package supervisor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauss-project/gauss/processor"
	"github.com/gauss-project/gauss/registry"
	"github.com/gauss-project/gauss/supervisor"
	"github.com/gauss-project/gauss/topic"
)

// fakeProcessor is a minimal Processor that blocks in Run until its context
// is canceled, recording its lifecycle calls.
type fakeProcessor struct {
	initCalled bool
	stopCalled bool
	ctxSeen    processor.Context
	runErr     error
}

func (f *fakeProcessor) Init(ctx processor.Context) error {
	f.initCalled = true
	f.ctxSeen = ctx
	return nil
}

func (f *fakeProcessor) Run(ctx context.Context) error {
	<-ctx.Done()
	return f.runErr
}

func (f *fakeProcessor) Stop() error {
	f.stopCalled = true
	return nil
}

func TestStartRejectsSubscriptionToUnsupportedReadMode(t *testing.T) {
	reg := registry.New()
	p := supervisor.New(reg, nil)

	ring := topic.NewRing(10, topic.PolicyDrop)
	p.AddTopic(&topic.Topic{Name: "prices", Storage: ring})

	proc := &fakeProcessor{}
	p.AddProcessor(supervisor.ProcessorSpec{
		Name: "bad-subscriber",
		Proc: proc,
		Subscription: &supervisor.Subscription{
			TopicName: "prices",
			Mode:      topic.ReadSnapshot, // ring only supports offset/latest/query
		},
	})

	err := p.Start(context.Background())
	require.Error(t, err)
	assert.False(t, proc.initCalled, "processor must not be initialized when read-mode assertion fails")
}

func TestStartWiresReaderAndWriterThenStopDrainsReverseOrder(t *testing.T) {
	reg := registry.New()
	p := supervisor.New(reg, nil)

	source := topic.NewRing(10, topic.PolicyDrop)
	sink := topic.NewRing(10, topic.PolicyDrop)
	p.AddTopic(&topic.Topic{Name: "source", Storage: source})
	p.AddTopic(&topic.Topic{Name: "sink", Storage: sink})

	upstream := &fakeProcessor{}
	downstream := &fakeProcessor{}

	p.AddProcessor(supervisor.ProcessorSpec{
		Name:        "upstream",
		Proc:        upstream,
		TargetTopic: "source",
	})
	p.AddProcessor(supervisor.ProcessorSpec{
		Name: "downstream",
		Proc: downstream,
		Subscription: &supervisor.Subscription{
			TopicName: "source",
			Mode:      topic.ReadOffset,
		},
		TargetTopic: "sink",
	})

	require.NoError(t, p.Start(context.Background()))
	assert.True(t, upstream.initCalled)
	assert.True(t, downstream.initCalled)
	assert.NotNil(t, upstream.ctxSeen.Writer)
	assert.NotNil(t, downstream.ctxSeen.Reader)
	assert.NotNil(t, downstream.ctxSeen.Writer)

	assert.Eventually(t, func() bool { return p.State() == supervisor.StateRunning }, time.Second, time.Millisecond)

	p.Stop()
	assert.True(t, upstream.stopCalled)
	assert.True(t, downstream.stopCalled)
	assert.Equal(t, supervisor.StateStopped, p.State())
}
