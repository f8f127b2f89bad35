package processor

import (
	"bufio"
	"context"
	"io"
	"log/slog"

	"github.com/gauss-project/gauss/pkg/timestamp"
	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/xerrors"
)

// Source reads a byte stream from a transport, applies framing, and emits
// TopicRecord into its target topic. ts_ms is assigned at emission time,
// the moment this processor — not the upstream byte stream — produces the
// record (§3.1).
type Source struct {
	transport io.Reader
	framer    Framer
	writer    Writer
	logger    *slog.Logger

	phase Phase
}

// NewSource constructs a Source reading transport through framer. Emitted
// records go to the Writer supplied to Init.
func NewSource(transport io.Reader, framer Framer, logger *slog.Logger) *Source {
	return &Source{transport: transport, framer: framer, logger: logger, phase: PhaseInit}
}

func (s *Source) Init(ctx Context) error {
	if ctx.Writer == nil {
		return xerrors.Config(xerrors.ErrMissingConfigField, "processor.Source", "Init")
	}
	s.writer = ctx.Writer
	s.phase = Phase1
	return nil
}

func (s *Source) Run(ctx context.Context) error {
	s.phase = PhaseSteady
	defer func() { s.phase = PhaseStopped }()

	r := bufio.NewReader(s.transport)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := s.framer.NextFrame(r)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return xerrors.Encoding(err, "processor.Source", "Run")
		}
		if len(frame) == 0 {
			continue
		}

		rec := record.New(timestamp.Now(), frame)
		if err := s.writer.Write(rec); err != nil {
			if xerrors.IsTransient(err) {
				if s.logger != nil {
					s.logger.Warn("transient write failure, continuing", "error", err)
				}
				continue
			}
			return err
		}
	}
}

func (s *Source) Stop() error {
	s.phase = PhaseStopping
	return nil
}
