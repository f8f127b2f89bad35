package processor

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/gauss-project/gauss/codec"
	"github.com/gauss-project/gauss/topic"
	"github.com/gauss-project/gauss/xerrors"
)

// Sink reads records from a source topic, serializes with an output codec,
// frames, and writes to a transport.
type Sink struct {
	transport io.Writer
	framer    Framer
	codec     codec.Codec
	mode      topic.ReadMode
	poll      time.Duration
	logger    *slog.Logger

	reader Reader
	cursor uint64
	phase  Phase
}

// NewSink constructs a Sink consuming mode (typically ReadOffset) from its
// source topic every poll interval, serializing with c and framing with
// framer before writing to transport.
func NewSink(transport io.Writer, framer Framer, c codec.Codec, mode topic.ReadMode, poll time.Duration, logger *slog.Logger) *Sink {
	return &Sink{transport: transport, framer: framer, codec: c, mode: mode, poll: poll, logger: logger, phase: PhaseInit}
}

func (s *Sink) Init(ctx Context) error {
	if ctx.Reader == nil {
		return xerrors.Config(xerrors.ErrMissingConfigField, "processor.Sink", "Init")
	}
	s.reader = ctx.Reader
	s.phase = Phase1
	return nil
}

func (s *Sink) Run(ctx context.Context) error {
	s.phase = PhaseSteady
	defer func() { s.phase = PhaseStopped }()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.drain(); err != nil {
				if xerrors.IsTransient(err) {
					if s.logger != nil {
						s.logger.Warn("transient sink read failure", "error", err)
					}
					continue
				}
				return err
			}
		}
	}
}

func (s *Sink) drain() error {
	result, err := s.reader.Read(s.mode, topic.ReadParams{Offset: s.cursor})
	if err != nil {
		return err
	}
	for _, rec := range result.Records {
		row, err := s.codec.Deserialize(rec.Data)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("dropping malformed record", "error", err)
			}
			continue
		}
		frame, err := s.codec.Serialize(row)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("dropping unencodable record", "error", err)
			}
			continue
		}
		if err := s.framer.WriteFrame(s.transport, frame); err != nil {
			return xerrors.Transient(err, "processor.Sink", "drain")
		}
	}
	s.cursor = result.NextOffset
	return nil
}

func (s *Sink) Stop() error {
	s.phase = PhaseStopping
	return nil
}
