package processor

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gauss-project/gauss/xerrors"
)

// Framer splits a byte stream into discrete frames for a source, and joins
// frames back onto a byte stream for a sink. The four framing strategies
// named in §4.6: newline, length_prefixed (with configurable prefix width
// and endianness), fixed_size, and format-specific markers (left to a
// codec-specific Framer implementation, not provided here).
type Framer interface {
	// NextFrame reads one frame from r, or returns io.EOF when the stream
	// is exhausted.
	NextFrame(r *bufio.Reader) ([]byte, error)
	// WriteFrame writes one frame (with whatever delimiter/prefix the
	// strategy requires) to w.
	WriteFrame(w io.Writer, frame []byte) error
}

// NewlineFramer splits on '\n', the delimiter used by JSON-lines sources.
type NewlineFramer struct{}

func (NewlineFramer) NextFrame(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	return line, nil
}

func (NewlineFramer) WriteFrame(w io.Writer, frame []byte) error {
	_, err := w.Write(append(append([]byte(nil), frame...), '\n'))
	return err
}

// Endian names the byte order of a length-prefixed framer's length field.
type Endian int

const (
	BigEndian Endian = iota
	LittleEndian
)

// LengthPrefixedFramer reads/writes a fixed-width length prefix (1, 2, 4,
// or 8 bytes) followed by that many payload bytes.
type LengthPrefixedFramer struct {
	PrefixWidth int // 1, 2, 4, or 8
	Order       Endian
}

func (f LengthPrefixedFramer) byteOrder() binary.ByteOrder {
	if f.Order == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func (f LengthPrefixedFramer) NextFrame(r *bufio.Reader) ([]byte, error) {
	prefix := make([]byte, f.PrefixWidth)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, err
	}

	var length uint64
	switch f.PrefixWidth {
	case 1:
		length = uint64(prefix[0])
	case 2:
		length = uint64(f.byteOrder().Uint16(prefix))
	case 4:
		length = uint64(f.byteOrder().Uint32(prefix))
	case 8:
		length = f.byteOrder().Uint64(prefix)
	default:
		return nil, xerrors.Config(fmt.Errorf("unsupported length prefix width %d", f.PrefixWidth), "processor.LengthPrefixedFramer", "NextFrame")
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, xerrors.Encoding(fmt.Errorf("%w: %v", xerrors.ErrMalformedFrame, err), "processor.LengthPrefixedFramer", "NextFrame")
	}
	return frame, nil
}

func (f LengthPrefixedFramer) WriteFrame(w io.Writer, frame []byte) error {
	prefix := make([]byte, f.PrefixWidth)
	switch f.PrefixWidth {
	case 1:
		prefix[0] = byte(len(frame))
	case 2:
		f.byteOrder().PutUint16(prefix, uint16(len(frame)))
	case 4:
		f.byteOrder().PutUint32(prefix, uint32(len(frame)))
	case 8:
		f.byteOrder().PutUint64(prefix, uint64(len(frame)))
	default:
		return xerrors.Config(fmt.Errorf("unsupported length prefix width %d", f.PrefixWidth), "processor.LengthPrefixedFramer", "WriteFrame")
	}
	if _, err := w.Write(prefix); err != nil {
		return err
	}
	_, err := w.Write(frame)
	return err
}

// FixedSizeFramer splits the stream into frames of exactly Size bytes.
type FixedSizeFramer struct{ Size int }

func (f FixedSizeFramer) NextFrame(r *bufio.Reader) ([]byte, error) {
	frame := make([]byte, f.Size)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (f FixedSizeFramer) WriteFrame(w io.Writer, frame []byte) error {
	if len(frame) != f.Size {
		return xerrors.Encoding(fmt.Errorf("%w: fixed_size framer expects %d bytes, got %d", xerrors.ErrInvalidValue, f.Size, len(frame)), "processor.FixedSizeFramer", "WriteFrame")
	}
	_, err := w.Write(frame)
	return err
}
