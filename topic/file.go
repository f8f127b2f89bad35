package topic

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/xerrors"
)

// frameHeaderSize is ts_ms (int64 big-endian) + data length (uint32
// big-endian) preceding every record's bytes in the append-only file.
const frameHeaderSize = 8 + 4

// FileStorage is the opaque-byte, append-only file storage variant:
// offset/latest/query modes over records appended to a single file.
// Directory-per-topic layout and rotation are left to the caller (the
// supervisor constructs one FileStorage per topic at the configured
// path); rotation itself is not implemented here — see zerocopy's
// file→file primitive for the replay/rotation path this storage hands off
// to.
type FileStorage struct {
	mu      sync.Mutex
	f       *os.File
	offsets []int64 // byte offset of each record's frame header, indexed by record offset
	tsByRec []int64
	size    int64 // current file size, tracked to avoid a Seek+stat per write
}

// NewFileStorage opens (creating if absent) the append-only data file at
// path and rebuilds its in-memory index from existing frames.
func NewFileStorage(path string) (*FileStorage, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, xerrors.Fatal(fmt.Errorf("opening topic file %q: %w", path, err), "topic.FileStorage", "NewFileStorage")
	}
	fs := &FileStorage{f: f}
	if err := fs.rebuildIndex(); err != nil {
		f.Close()
		return nil, err
	}
	return fs, nil
}

func (fs *FileStorage) rebuildIndex() error {
	var pos int64
	for {
		header := make([]byte, frameHeaderSize)
		n, err := fs.f.ReadAt(header, pos)
		if err == io.EOF && n == 0 {
			break
		}
		if err != nil && err != io.EOF {
			return xerrors.Fatal(err, "topic.FileStorage", "rebuildIndex")
		}
		if n < frameHeaderSize {
			break // truncated trailing frame, stop indexing
		}
		ts := int64(binary.BigEndian.Uint64(header[0:8]))
		length := binary.BigEndian.Uint32(header[8:12])
		fs.offsets = append(fs.offsets, pos)
		fs.tsByRec = append(fs.tsByRec, ts)
		pos += frameHeaderSize + int64(length)
	}
	fs.size = pos
	return nil
}

func (fs *FileStorage) Init(Context) error { return nil }

func (fs *FileStorage) Save(rec record.TopicRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint64(header[0:8], uint64(rec.TsMs))
	binary.BigEndian.PutUint32(header[8:12], uint32(len(rec.Data)))

	if _, err := fs.f.WriteAt(header, fs.size); err != nil {
		return xerrors.Transient(err, "topic.FileStorage", "Save")
	}
	if _, err := fs.f.WriteAt(rec.Data, fs.size+frameHeaderSize); err != nil {
		return xerrors.Transient(err, "topic.FileStorage", "Save")
	}

	fs.offsets = append(fs.offsets, fs.size)
	fs.tsByRec = append(fs.tsByRec, rec.TsMs)
	fs.size += frameHeaderSize + int64(len(rec.Data))
	return nil
}

func (fs *FileStorage) readFrame(idx int) (record.TopicRecord, error) {
	pos := fs.offsets[idx]
	header := make([]byte, frameHeaderSize)
	if _, err := fs.f.ReadAt(header, pos); err != nil {
		return record.TopicRecord{}, xerrors.Transient(err, "topic.FileStorage", "readFrame")
	}
	length := binary.BigEndian.Uint32(header[8:12])
	data := make([]byte, length)
	if _, err := fs.f.ReadAt(data, pos+frameHeaderSize); err != nil {
		return record.TopicRecord{}, xerrors.Transient(err, "topic.FileStorage", "readFrame")
	}
	return record.TopicRecord{TsMs: fs.tsByRec[idx], Data: data}, nil
}

func (fs *FileStorage) Read(mode ReadMode, params ReadParams) (ReadResult, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	total := uint64(len(fs.offsets))

	switch mode {
	case ReadLatest:
		if total == 0 {
			return ReadResult{}, nil
		}
		rec, err := fs.readFrame(len(fs.offsets) - 1)
		if err != nil {
			return ReadResult{}, err
		}
		return ReadResult{Records: []record.TopicRecord{rec}, NextOffset: total}, nil

	case ReadOffset:
		start := params.Offset
		if start > total {
			start = total
		}
		recs := make([]record.TopicRecord, 0, total-start)
		for i := int(start); i < len(fs.offsets); i++ {
			rec, err := fs.readFrame(i)
			if err != nil {
				return ReadResult{}, err
			}
			recs = append(recs, rec)
		}
		return ReadResult{Records: recs, NextOffset: total}, nil

	case ReadQuery:
		var recs []record.TopicRecord
		for i, ts := range fs.tsByRec {
			if ts < params.FromMs || ts > params.ToMs {
				continue
			}
			rec, err := fs.readFrame(i)
			if err != nil {
				return ReadResult{}, err
			}
			recs = append(recs, rec)
			if params.Limit > 0 && len(recs) >= params.Limit {
				break
			}
		}
		return ReadResult{Records: recs, NextOffset: total}, nil

	default:
		return ReadResult{}, xerrors.Config(xerrors.ErrReadModeIncompatible, "topic.FileStorage", "Read")
	}
}

func (fs *FileStorage) SupportedReadModes() []ReadMode {
	return []ReadMode{ReadOffset, ReadLatest, ReadQuery}
}

// File returns the storage's backing *os.File, for the zero-copy replay
// path (§4.11): a sink processor serving a catch-up subscriber hands this
// fd, plus a ByteRange, directly to zerocopy.ReplayFileRange rather than reading
// records through Save/Read.
func (fs *FileStorage) File() *os.File {
	return fs.f
}

// ByteRange returns the [start, start+length) byte span in the backing
// file covering records [from, to) by record offset, for a zero-copy
// replay of that range. to may exceed the current record count; it is
// clamped.
func (fs *FileStorage) ByteRange(from, to uint64) (start, length int64, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	total := uint64(len(fs.offsets))
	if from > total {
		from = total
	}
	if to > total {
		to = total
	}
	if to <= from {
		return 0, 0, nil
	}

	start = fs.offsets[from]
	var end int64
	if to == total {
		end = fs.size
	} else {
		end = fs.offsets[to]
	}
	return start, end - start, nil
}

func (fs *FileStorage) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.f.Close()
}
