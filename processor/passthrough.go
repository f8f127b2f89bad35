package processor

import (
	"context"
	"fmt"
	"net"
	"os"

	"golang.org/x/time/rate"

	"github.com/gauss-project/gauss/metric"
	"github.com/gauss-project/gauss/topic"
	"github.com/gauss-project/gauss/xerrors"
	"github.com/gauss-project/gauss/zerocopy"
)

// PassthroughSink replays a byte range of a file-backed topic straight to
// a connected socket via the zero-copy bypass (§4.11), never constructing
// a Row or assigning ts_ms — "the highest-value case in practice" per the
// bypass's own framing. It is not a Processor in the source/transform/sink
// sense: a replay is a one-shot request/response, not a steady-state
// stream, so it has no Init/Run/Stop lifecycle of its own.
type PassthroughSink struct {
	limiter *rate.Limiter
	metrics *metric.Metrics
}

// NewPassthroughSink constructs a PassthroughSink. metrics may be nil. If
// maxBytesPerSecond is positive, replay throughput is capped to it.
func NewPassthroughSink(maxBytesPerSecond int, metrics *metric.Metrics) *PassthroughSink {
	ps := &PassthroughSink{metrics: metrics}
	if maxBytesPerSecond > 0 {
		ps.limiter = rate.NewLimiter(rate.Limit(maxBytesPerSecond), maxBytesPerSecond)
	}
	return ps
}

// Replay transfers the byte range of src covering records [from, to)
// directly to conn's socket fd via sendfile(2), bypassing TopicRecord
// construction entirely. conn must be a *net.TCPConn or *net.UnixConn so
// its underlying fd can be extracted.
func (ps *PassthroughSink) Replay(ctx context.Context, src *topic.FileStorage, from, to uint64, conn net.Conn) (int64, error) {
	start, length, err := src.ByteRange(from, to)
	if err != nil {
		return 0, err
	}
	if length == 0 {
		return 0, nil
	}

	sockFile, err := socketFile(conn)
	if err != nil {
		return 0, xerrors.Config(err, "processor.PassthroughSink", "Replay")
	}
	defer sockFile.Close()

	if ps.limiter != nil {
		if err := ps.limiter.WaitN(ctx, clampBurst(length, ps.limiter.Burst())); err != nil {
			return 0, xerrors.Transient(err, "processor.PassthroughSink", "Replay")
		}
	}

	n, err := zerocopy.ReplayFileRange(sockFile, src.File(), start, length)
	if ps.metrics != nil {
		if err != nil {
			ps.metrics.RecordZeroCopyFallback()
		} else {
			ps.metrics.RecordZeroCopyBytes(zerocopy.PrimitiveFileToSocket.String(), n)
		}
	}
	return n, err
}

// socketFile extracts a duplicated, blocking-mode *os.File of conn's
// underlying fd, suitable for sendfile(2)'s destination argument.
// *net.TCPConn and *net.UnixConn both expose this via their File method.
func socketFile(conn net.Conn) (*os.File, error) {
	switch c := conn.(type) {
	case *net.TCPConn:
		return c.File()
	case *net.UnixConn:
		return c.File()
	default:
		return nil, fmt.Errorf("zero-copy replay requires a TCP or unix socket, got %T", conn)
	}
}

func clampBurst(length int64, burst int) int {
	if length > int64(burst) {
		return burst
	}
	return int(length)
}
