// Package reader parses a C-DNS file back into its file preamble and a
// sequence of decoded blocks: the read-side counterpart of package
// exporter.
package reader

import (
	"io"

	"github.com/CZ-NIC/go-cdns/block"
	"github.com/CZ-NIC/go-cdns/cbor"
	"github.com/CZ-NIC/go-cdns/errs"
	"github.com/CZ-NIC/go-cdns/stream"
	"github.com/CZ-NIC/go-cdns/wire"
)

// Reader parses a C-DNS byte stream one block at a time. It never seeks
// back: ReadBlock consumes exactly one block per call.
type Reader struct {
	r       io.Reader
	decoder *cbor.Decoder

	Preamble block.FilePreamble

	done bool
}

// New opens target with the given Kind, validates the file-type tag and
// format version, and parses the file preamble.
func New(kind stream.Kind, target stream.ReadTarget) (*Reader, error) {
	r, err := stream.NewReader(kind, target)
	if err != nil {
		return nil, err
	}

	d := cbor.NewDecoder(r)

	_, indefinite, err := d.ReadArrayStart()
	if err != nil {
		return nil, err
	}

	if !indefinite {
		return nil, errs.ErrMissingPreamble
	}

	tag, err := d.ReadTag()
	if err != nil {
		return nil, err
	}

	if tag != wire.FileTypeTag {
		return nil, errs.ErrMissingPreamble
	}

	preamble, err := readFilePreamble(d)
	if err != nil {
		return nil, err
	}

	return &Reader{r: r, decoder: d, Preamble: preamble}, nil
}

// ReadBlock parses the next block in the stream. eof is true once the
// file's closing break has been reached and consumed; block.Reader is nil
// in that case.
func (r *Reader) ReadBlock() (blk *block.Reader, eof bool, err error) {
	if r.done {
		return nil, true, nil
	}

	t, err := r.decoder.PeekType()
	if err != nil {
		return nil, false, err
	}

	if t == cbor.Break {
		if err := r.decoder.ReadBreak(); err != nil {
			return nil, false, err
		}

		r.done = true

		return nil, true, nil
	}

	blk, err = block.ReadBlock(r.decoder)
	if err != nil {
		return nil, false, err
	}

	if blk.BlockParametersIndex < 0 || blk.BlockParametersIndex >= len(r.Preamble.BlockParameters) {
		return nil, false, errs.ErrDanglingIndex
	}

	blk.SetTicksPerSecond(r.Preamble.BlockParameters[blk.BlockParametersIndex].Storage.TicksPerSecond)

	return blk, false, nil
}
