package executor

import (
	"context"
	"time"

	"github.com/gauss-project/gauss/codec"
	"github.com/gauss-project/gauss/mapping"
	"github.com/gauss-project/gauss/pkg/buffer"
	"github.com/gauss-project/gauss/pkg/worker"
	"github.com/gauss-project/gauss/record"
)

// Batcher decouples a buffered sequence of TopicRecord from the lifetime
// of any one Row: records accumulate in a ring buffer and are drained at a
// size or time threshold, each converted and written by one of a fixed set
// of worker goroutines (§4.8's batching discipline). Adapted from pkg/buffer's generic
// Buffer[T] for accumulation and pkg/worker.Pool[T] for draining a batch
// across a fixed worker fan-out instead of one goroutine per record.
type Batcher struct {
	buf        buffer.Buffer[record.TopicRecord]
	threshold  int
	interval   time.Duration
	serializer codec.Codec
	mapping    mapping.MapSchema
	converters ConverterLookup
	sink       WriteNative
	pool       *worker.Pool[record.TopicRecord]

	stop chan struct{}
	done chan struct{}
}

// NewBatcher constructs a Batcher buffering up to capacity records,
// draining when either threshold records have accumulated or interval has
// elapsed since the last drain, whichever comes first. Drained records are
// fanned out across workerCount goroutines via pkg/worker.Pool.
func NewBatcher(capacity, threshold int, interval time.Duration, workerCount int, serializer codec.Codec, ms mapping.MapSchema, converters ConverterLookup, sink WriteNative) (*Batcher, error) {
	buf, err := buffer.NewCircularBuffer[record.TopicRecord](capacity, buffer.WithOverflowPolicy[record.TopicRecord](buffer.Block))
	if err != nil {
		return nil, err
	}
	b := &Batcher{
		buf:        buf,
		threshold:  threshold,
		interval:   interval,
		serializer: serializer,
		mapping:    ms,
		converters: converters,
		sink:       sink,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	b.pool = worker.NewPool(workerCount, threshold, func(_ context.Context, rec record.TopicRecord) error {
		return Execute(rec, b.serializer, b.mapping, b.converters, b.sink)
	})
	return b, nil
}

// Enqueue adds rec to the pending batch, blocking per the buffer's
// overflow policy if it is full.
func (b *Batcher) Enqueue(rec record.TopicRecord) error {
	return b.buf.Write(rec)
}

// Run drains on the threshold/interval schedule until ctx is canceled or
// Stop is called.
func (b *Batcher) Run(ctx context.Context) error {
	defer close(b.done)

	if err := b.pool.Start(ctx); err != nil {
		return err
	}

	pollInterval := b.interval / 10
	if pollInterval < time.Millisecond {
		pollInterval = time.Millisecond
	}
	if pollInterval > 10*time.Millisecond {
		pollInterval = 10 * time.Millisecond
	}
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()
	lastDrain := time.Now()

	for {
		select {
		case <-ctx.Done():
			b.drain()
			_ = b.pool.Stop(5 * time.Second)
			return nil
		case <-b.stop:
			b.drain()
			_ = b.pool.Stop(5 * time.Second)
			return nil
		case now := <-poll.C:
			if b.buf.Size() >= b.threshold || now.Sub(lastDrain) >= b.interval {
				b.drain()
				lastDrain = now
			}
		}
	}
}

// drain submits up to threshold buffered records to the worker pool;
// submission errors (a full pool queue) are swallowed here because a
// dropped record is observable via the pool's own drop counter rather than
// by failing the whole drain cycle.
func (b *Batcher) drain() {
	batch := b.buf.ReadBatch(b.threshold)
	for _, rec := range batch {
		_ = b.pool.Submit(rec)
	}
}

// Stop requests the drain loop exit after one final drain.
func (b *Batcher) Stop() {
	close(b.stop)
	<-b.done
}
