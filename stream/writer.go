// Package stream implements the sequential byte-writer/reader layer (§4.1):
// plain, gzip, and xz backends writing to a managed file (via a ".part"
// staging name, renamed on clean close) or to a caller-owned file
// descriptor, plus output rotation.
package stream

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/CZ-NIC/go-cdns/errs"
)

// Writer is implemented by the three concrete backends (plain, gzip, xz).
// Once Write returns an error, the Writer is poisoned: every subsequent
// Write fails fast with the same error (§7 encoder-does-not-recover
// policy).
type Writer interface {
	io.Writer

	// Rotate flushes and closes the current target, then begins writing to
	// target. If compressed, the new target starts a fresh, independently
	// decodable compressed stream.
	Rotate(target Target) error

	// Close flushes and closes the writer. For a file target this renames
	// away the ".part" suffix; for an FD target the descriptor itself is
	// left open.
	Close() error
}

// NewWriter opens target for writing with the given compression Kind.
func NewWriter(kind Kind, target Target) (Writer, error) {
	switch kind {
	case Plain:
		return newPlainWriter(target)
	case Gzip:
		return newCompressedWriter(target, kind, func(w io.Writer) (flushCloser, error) {
			return gzip.NewWriter(w), nil
		})
	case Xz:
		return newCompressedWriter(target, kind, func(w io.Writer) (flushCloser, error) {
			zw, err := xz.NewWriter(w)
			if err != nil {
				return nil, err
			}

			return xzFlushCloser{zw}, nil
		})
	default:
		return nil, fmt.Errorf("%w: kind %v", errs.ErrUnsupportedTarget, kind)
	}
}

// plainWriter writes directly to the underlying file, no compression layer.
type plainWriter struct {
	file    *os.File
	kind    Kind
	target  Target
	partial string // ".part" path in use, "" once renamed or for FD targets
	err     error
}

func openTarget(target Target, kind Kind) (f *os.File, partial string, err error) {
	if target.isFD {
		return target.file, "", nil
	}

	partial = target.path + kind.extension() + ".part"

	f, err = os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("%w: open %s: %v", errs.ErrClosed, partial, err)
	}

	return f, partial, nil
}

func newPlainWriter(target Target) (*plainWriter, error) {
	return newPlainWriterKind(target, Plain)
}

func newPlainWriterKind(target Target, kind Kind) (*plainWriter, error) {
	f, partial, err := openTarget(target, kind)
	if err != nil {
		return nil, err
	}

	return &plainWriter{file: f, kind: kind, target: target, partial: partial}, nil
}

func (w *plainWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	n, err := w.file.Write(p)
	if err != nil {
		w.err = fmt.Errorf("%w: %v", errs.ErrWriterPoisoned, err)
	}

	return n, w.err
}

func (w *plainWriter) finish() error {
	if w.target.isFD {
		return w.file.Sync()
	}

	if err := w.file.Close(); err != nil {
		return err
	}

	if w.partial == "" {
		return nil
	}

	final := w.target.path + w.kind.extension()
	if err := os.Rename(w.partial, final); err != nil {
		return err
	}

	w.partial = ""

	return nil
}

func (w *plainWriter) Close() error {
	return w.finish()
}

func (w *plainWriter) Rotate(target Target) error {
	if err := w.finish(); err != nil {
		return err
	}

	f, partial, err := openTarget(target, w.kind)
	if err != nil {
		return err
	}

	w.file = f
	w.target = target
	w.partial = partial
	w.err = nil

	return nil
}

// flushCloser is satisfied by gzip.Writer and the xz adapter: both need an
// explicit Flush (to finalize the compressed stream) distinct from Close.
type flushCloser interface {
	io.Writer
	Flush() error
	Close() error
}

// xzFlushCloser adapts xz.Writer (which has no Flush) to flushCloser: xz
// streams are only well-formed once Close writes the final block, so Flush
// is a no-op and the real work happens in finish/Rotate calling Close.
type xzFlushCloser struct {
	w *xz.Writer
}

func (x xzFlushCloser) Write(p []byte) (int, error) { return x.w.Write(p) }
func (x xzFlushCloser) Flush() error                { return nil }
func (x xzFlushCloser) Close() error                { return x.w.Close() }

// compressedWriter layers a flushCloser (gzip or xz) atop a plainWriter.
type compressedWriter struct {
	plain   *plainWriter
	comp    flushCloser
	newComp func(io.Writer) (flushCloser, error)
	err     error
}

func newCompressedWriter(target Target, kind Kind, newComp func(io.Writer) (flushCloser, error)) (*compressedWriter, error) {
	plain, err := newPlainWriterKind(target, kind)
	if err != nil {
		return nil, err
	}

	comp, err := newComp(plain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCompressionFailed, err)
	}

	return &compressedWriter{plain: plain, comp: comp, newComp: newComp}, nil
}

func (w *compressedWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	n, err := w.comp.Write(p)
	if err != nil {
		w.err = fmt.Errorf("%w: %v", errs.ErrCompressionFailed, err)
	}

	return n, w.err
}

func (w *compressedWriter) finish() error {
	if err := w.comp.Close(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrCompressionFailed, err)
	}

	return w.plain.finish()
}

func (w *compressedWriter) Close() error {
	return w.finish()
}

// Rotate closes out the current compressed stream as a complete,
// independently decodable segment, then starts a fresh one on target.
func (w *compressedWriter) Rotate(target Target) error {
	if err := w.finish(); err != nil {
		return err
	}

	plain, err := newPlainWriterKind(target, w.plain.kind)
	if err != nil {
		return err
	}

	comp, err := w.newComp(plain)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrCompressionFailed, err)
	}

	w.plain = plain
	w.comp = comp
	w.err = nil

	return nil
}
