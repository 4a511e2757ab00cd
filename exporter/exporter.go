// Package exporter assembles generic DNS events into C-DNS blocks and
// writes them to an output stream: the file preamble is written on
// construction, blocks are flushed automatically once full or on request,
// and the output can be rotated onto a fresh target without losing the
// in-flight block.
package exporter

import (
	"github.com/CZ-NIC/go-cdns/block"
	"github.com/CZ-NIC/go-cdns/cbor"
	"github.com/CZ-NIC/go-cdns/errs"
	"github.com/CZ-NIC/go-cdns/internal/options"
	"github.com/CZ-NIC/go-cdns/stream"
	"github.com/CZ-NIC/go-cdns/wire"
)

// Option configures an Exporter at construction time.
type Option = options.Option[*Exporter]

// WithOnCloseError registers a callback invoked with any error Close
// encounters while flushing or closing the underlying writer. Close itself
// still returns the first such error; the callback lets a caller also log
// every error Close tried to recover from, matching the "fallible
// destructor" shape noted for scoped-close resources.
func WithOnCloseError(fn func(error)) Option {
	return options.NoError(func(e *Exporter) { e.onCloseError = fn })
}

// WithMaxBlockItems overrides the per-block item cap. A value of 0 means no
// cap: the caller is responsible for calling WriteBlock.
func WithMaxBlockItems(max uint32) Option {
	return options.NoError(func(e *Exporter) {
		e.maxBlockItems = max
		e.maxBlockItemsSet = true
	})
}

// Exporter is the write-side façade: generic events go in via Buffer*,
// blocks are written out automatically or on demand.
type Exporter struct {
	writer  stream.Writer
	encoder *cbor.Encoder

	preamble block.FilePreamble
	active   *block.Block

	activeParametersIndex int
	maxBlockItems         uint32
	maxBlockItemsSet      bool

	onCloseError func(error)

	closed bool
	err    error
}

// New creates an Exporter over target using the given Kind, writes the
// file preamble immediately (indefinite array start, file-type tag,
// preamble map), and opens the first active block under BlockParameters
// index 0.
func New(kind stream.Kind, target stream.Target, preamble block.FilePreamble, opts ...Option) (*Exporter, error) {
	w, err := stream.NewWriter(kind, target)
	if err != nil {
		return nil, err
	}

	e := &Exporter{
		writer:   w,
		encoder:  cbor.NewEncoder(w),
		preamble: preamble,
	}

	if err := options.Apply(e, opts...); err != nil {
		return nil, err
	}

	if !e.maxBlockItemsSet {
		e.maxBlockItems = preamble.BlockParameters[0].Storage.MaxBlockItems
	}

	if _, err := e.writePreamble(); err != nil {
		return nil, err
	}

	e.openBlock(0)

	return e, nil
}

func (e *Exporter) writePreamble() (int, error) {
	start := e.encoder.Written()

	if err := e.encoder.WriteIndefArrayStart(); err != nil {
		return int(e.encoder.Written() - start), err
	}

	if err := e.encoder.WriteTag(wire.FileTypeTag); err != nil {
		return int(e.encoder.Written() - start), err
	}

	err := writeFilePreamble(e.encoder, e.preamble)

	return int(e.encoder.Written() - start), err
}

func (e *Exporter) openBlock(parametersIndex int) {
	tps := e.preamble.BlockParameters[parametersIndex].Storage.TicksPerSecond
	e.activeParametersIndex = parametersIndex
	e.active = block.NewBlock(parametersIndex, e.maxBlockItems, tps)
}

// AddBlockParameters appends a new BlockParameters entry to the file
// preamble. This must happen before the preamble is written, i.e. before
// New returns control with events buffered — in practice, callers should
// finish declaring every BlockParameters entry up front via the preamble
// passed to New.
func (e *Exporter) AddBlockParameters(bp block.BlockParameters) int {
	return e.preamble.AddBlockParameters(bp)
}

// SetActiveBlockParameters switches the currently-open block (which must
// be empty) to reference a different, already-declared BlockParameters
// entry.
func (e *Exporter) SetActiveBlockParameters(index int) error {
	if index < 0 || index >= len(e.preamble.BlockParameters) {
		return errs.ErrBlockParametersIndex
	}

	if err := e.active.SetBlockParametersIndex(index); err != nil {
		return err
	}

	e.active.Clear()
	e.openBlock(index)

	return nil
}

// GetBlockItemCount returns the number of generic events buffered in the
// currently active block.
func (e *Exporter) GetBlockItemCount() int { return e.active.GetItemCount() }

// flushIfFull writes out the active block if it is full, returning the
// number of bytes written (0 if no flush was needed).
func (e *Exporter) flushIfFull() (int, error) {
	if e.active.IsFull() {
		return e.WriteBlock()
	}

	return 0, nil
}

// BufferQR buffers one query/response event into the active block,
// flushing the block first if it was already full. It returns the number
// of bytes written to the output stream by that flush, or 0 if none was
// needed.
func (e *Exporter) BufferQR(qr block.QueryResponse) (int, error) {
	if e.err != nil {
		return 0, e.err
	}

	n, err := e.flushIfFull()
	if err != nil {
		return n, err
	}

	e.active.AddQueryResponse(qr)

	return n, nil
}

// BufferMM buffers one malformed-message event into the active block,
// flushing the block first if it was already full. It returns the number
// of bytes written to the output stream by that flush, or 0 if none was
// needed.
func (e *Exporter) BufferMM(mm block.MalformedMessage) (int, error) {
	if e.err != nil {
		return 0, e.err
	}

	n, err := e.flushIfFull()
	if err != nil {
		return n, err
	}

	e.active.AddMalformedMessage(mm)

	return n, nil
}

// BufferAEC records one address-event observation, coalescing it into an
// existing entry with the same identity if one is already buffered. It
// returns the number of bytes written to the output stream by a triggered
// flush, or 0 if none was needed.
func (e *Exporter) BufferAEC(code, transportFlags uint8, addressIndex int, hasAddressIndex bool, count uint64) (int, error) {
	if e.err != nil {
		return 0, e.err
	}

	n, err := e.flushIfFull()
	if err != nil {
		return n, err
	}

	e.active.AddAddressEventCount(code, transportFlags, addressIndex, hasAddressIndex, count)

	return n, nil
}

// WriteBlock serializes the active block to the output stream and opens a
// fresh block under the same BlockParameters index. It returns the number
// of bytes written, which a caller can check against the stream's growth.
func (e *Exporter) WriteBlock() (int, error) {
	if e.err != nil {
		return 0, e.err
	}

	if e.active.GetItemCount() == 0 {
		return 0, nil
	}

	n, err := e.active.Write(e.encoder)
	if err != nil {
		e.err = err
		return n, err
	}

	idx := e.activeParametersIndex
	e.openBlock(idx)

	return n, nil
}

// RotateOutput closes the current output (finishing it as an independently
// decodable segment if compressed) and begins writing to target. If
// flushCurrent is true the active block is written out before rotation;
// otherwise its buffered events stay in the active block and are written
// to the new segment by a later flush. It returns the total number of
// bytes written to the OLD segment by this call (any flushed block plus the
// closing break) so a caller can verify the finished segment's size.
//
// The old segment's outer array is not continued in the new one: per §7, a rotated
// segment is a fresh, self-contained file starting with its own array
// start/tag/preamble, exactly like New produces. RotateOutput therefore
// writes the closing break for the old segment, rotates the writer, and
// writes a fresh preamble into the new segment.
func (e *Exporter) RotateOutput(kind stream.Kind, target stream.Target, flushCurrent bool) (int, error) {
	if e.err != nil {
		return 0, e.err
	}

	var n int

	if flushCurrent {
		flushed, err := e.WriteBlock()
		n += flushed

		if err != nil {
			return n, err
		}
	}

	start := e.encoder.Written()
	if err := e.encoder.WriteBreak(); err != nil {
		e.err = err
		n += int(e.encoder.Written() - start)

		return n, err
	}

	n += int(e.encoder.Written() - start)

	newWriter, err := stream.NewWriter(kind, target)
	if err != nil {
		return n, err
	}

	if err := e.writer.Close(); err != nil {
		if e.onCloseError != nil {
			e.onCloseError(err)
		}
	}

	e.writer = newWriter
	e.encoder.SetWriter(newWriter)

	_, err = e.writePreamble()

	return n, err
}

// Close flushes the active block (if non-empty), writes the closing break
// for the outer indefinite array, and closes the underlying output. It
// implements the "fallible destructor" pattern: every step that can fail is
// attempted even after an earlier step failed, the first error is
// returned, and onCloseError (if set) is invoked with every error
// encountered, not just the first.
func (e *Exporter) Close() error {
	if e.closed {
		return errs.ErrAfterClose
	}

	e.closed = true

	var firstErr error

	record := func(err error) {
		if err == nil {
			return
		}

		if firstErr == nil {
			firstErr = err
		}

		if e.onCloseError != nil {
			e.onCloseError(err)
		}
	}

	if e.err == nil {
		_, err := e.WriteBlock()
		record(err)
	}

	record(e.encoder.WriteBreak())
	record(e.writer.Close())

	return firstErr
}
