// Package zerocopy implements the Zero-Copy Bypass (C11): kernel-space
// splice/sendfile paths for passthrough pipelines that never materialize a
// TopicRecord. Grounded on golang.org/x/sys/unix's Splice/Sendfile
// wrappers — the only syscall-level primitives in the retrieved example
// pack capable of moving bytes kernel-side — since no example repo ships
// its own splice wrapper to imitate structurally.
package zerocopy

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/gauss-project/gauss/xerrors"
)

// Endpoint names which kernel primitive a passthrough path resolves to.
type Endpoint int

const (
	EndpointFile Endpoint = iota
	EndpointSocket
)

// Primitive identifies the resolved kernel copy path for one pair of
// endpoints.
type Primitive int

const (
	// PrimitiveFileToSocket replays file storage to a subscriber (the
	// "highest-value case in practice" per the passthrough bypass's design
	// note): sendfile(2) from a regular file's fd to a connected socket.
	PrimitiveFileToSocket Primitive = iota
	// PrimitiveSocketToFile captures a raw stream without framing: splice(2)
	// through a pipe from socket fd to file fd.
	PrimitiveSocketToFile
	// PrimitiveSocketToSocket proxies bytes between two connections:
	// splice(2) through a pipe, socket fd to socket fd.
	PrimitiveSocketToSocket
	// PrimitiveFileToFile rotates/copies between two files: splice(2)
	// through a pipe, file fd to file fd (sendfile requires the source be
	// mmap-able and the destination not be another regular file on some
	// kernels, so splice is used uniformly for this pair).
	PrimitiveFileToFile
)

func (p Primitive) String() string {
	switch p {
	case PrimitiveFileToSocket:
		return "file_to_socket"
	case PrimitiveSocketToFile:
		return "socket_to_file"
	case PrimitiveSocketToSocket:
		return "socket_to_socket"
	case PrimitiveFileToFile:
		return "file_to_file"
	default:
		return "unknown"
	}
}

// Resolve arbitrates between the four kernel primitives by matching the
// configured source/destination endpoint kinds. It returns a Configuration
// error for any path requiring framing or record construction (the engine
// "does not attempt zero-copy on any path that requires framing").
func Resolve(src, dst Endpoint) (Primitive, error) {
	switch {
	case src == EndpointFile && dst == EndpointSocket:
		return PrimitiveFileToSocket, nil
	case src == EndpointSocket && dst == EndpointFile:
		return PrimitiveSocketToFile, nil
	case src == EndpointSocket && dst == EndpointSocket:
		return PrimitiveSocketToSocket, nil
	case src == EndpointFile && dst == EndpointFile:
		return PrimitiveFileToFile, nil
	default:
		return 0, xerrors.Config(fmt.Errorf("no zero-copy primitive for endpoint pair (%v, %v)", src, dst), "zerocopy", "Resolve")
	}
}

// Copy moves n bytes (or until EOF if n < 0) from src to dst using the
// kernel primitive Resolve selects for their endpoint kinds, falling back
// to neither — an unresolvable pair is a Configuration error raised before
// any I/O happens, per §4.11's "arbitrates by matching the configured
// endpoints against the primitive that fits."
func Copy(src, dst *os.File, srcKind, dstKind Endpoint, n int64) (Primitive, int64, error) {
	prim, err := Resolve(srcKind, dstKind)
	if err != nil {
		return prim, 0, err
	}

	switch prim {
	case PrimitiveFileToSocket:
		written, err := sendfileAll(dst, src, n)
		return prim, written, err
	case PrimitiveSocketToFile, PrimitiveSocketToSocket, PrimitiveFileToFile:
		written, err := spliceAll(src, dst, n)
		return prim, written, err
	default:
		return prim, 0, xerrors.Fatal(fmt.Errorf("unhandled primitive %v", prim), "zerocopy", "Copy")
	}
}

// sendfileAll drives unix.Sendfile to completion, since a single call may
// transfer fewer bytes than requested.
func sendfileAll(dst, src *os.File, n int64) (int64, error) {
	return sendfileAllAt(dst, src, nil, n)
}

// ReplayFileRange transfers the n bytes of src starting at byte offset
// directly to dst (a socket fd) via sendfile(2), using an explicit offset
// rather than the shared file's seek position. This is the file→socket
// replay path (§4.11's "highest-value case in practice"): a sink
// processor replaying one subscriber's byte range of a file-backed topic
// must not perturb — or race against — any other reader's position on the
// same *os.File.
func ReplayFileRange(dst, src *os.File, offset, n int64) (int64, error) {
	return sendfileAllAt(dst, src, &offset, n)
}

func sendfileAllAt(dst, src *os.File, offset *int64, n int64) (int64, error) {
	var total int64
	remaining := n
	unbounded := n < 0

	for unbounded || remaining > 0 {
		want := 1 << 20 // 1 MiB per call, matching typical pipe buffer sizing
		if !unbounded && int64(want) > remaining {
			want = int(remaining)
		}
		written, err := unix.Sendfile(int(dst.Fd()), int(src.Fd()), offset, want)
		if written > 0 {
			total += int64(written)
			if !unbounded {
				remaining -= int64(written)
			}
		}
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return total, xerrors.Transient(fmt.Errorf("sendfile: %w", err), "zerocopy", "sendfileAll")
		}
		if written == 0 {
			if unbounded {
				return total, nil // source EOF
			}
			return total, xerrors.Transient(io.ErrUnexpectedEOF, "zerocopy", "sendfileAll")
		}
	}
	return total, nil
}

// spliceAll drives unix.Splice through an intermediate pipe to completion.
// splice(2) requires at least one endpoint be a pipe; a dedicated pipe is
// created per call the way a raw proxy loop would.
func spliceAll(src, dst *os.File, n int64) (int64, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return 0, xerrors.Transient(fmt.Errorf("creating relay pipe: %w", err), "zerocopy", "spliceAll")
	}
	defer pr.Close()
	defer pw.Close()

	var total int64
	remaining := n
	unbounded := n < 0
	const chunk = 1 << 20

	for unbounded || remaining > 0 {
		want := chunk
		if !unbounded && int64(want) > remaining {
			want = int(remaining)
		}

		moved, err := unix.Splice(int(src.Fd()), nil, int(pw.Fd()), nil, want, unix.SPLICE_F_MOVE)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return total, xerrors.Transient(fmt.Errorf("splice in: %w", err), "zerocopy", "spliceAll")
		}
		if moved == 0 {
			return total, nil // source EOF
		}

		remainingOut := moved
		for remainingOut > 0 {
			out, err := unix.Splice(int(pr.Fd()), nil, int(dst.Fd()), nil, int(remainingOut), unix.SPLICE_F_MOVE)
			if err != nil {
				if err == unix.EINTR {
					continue
				}
				return total, xerrors.Transient(fmt.Errorf("splice out: %w", err), "zerocopy", "spliceAll")
			}
			remainingOut -= out
		}

		total += moved
		if !unbounded {
			remaining -= moved
		}
	}
	return total, nil
}
