package stream

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/CZ-NIC/go-cdns/errs"
)

// ReadTarget names where a Reader pulls its bytes from: a filesystem path
// the library opens, or a caller-owned file descriptor.
type ReadTarget struct {
	path string
	file *os.File
	isFD bool
}

// FileReadTarget opens path for reading.
func FileReadTarget(path string) ReadTarget { return ReadTarget{path: path} }

// FDReadTarget wraps an already-open file descriptor.
func FDReadTarget(f *os.File) ReadTarget { return ReadTarget{file: f, isFD: true} }

// NewReader opens target and wraps it with the decompression layer implied
// by kind. The returned io.Reader is strictly forward/streaming, mirroring
// the exporter's write-only counterpart.
func NewReader(kind Kind, target ReadTarget) (io.Reader, error) {
	var f *os.File

	if target.isFD {
		f = target.file
	} else {
		var err error

		f, err = os.Open(target.path)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", errs.ErrClosed, target.path, err)
		}
	}

	switch kind {
	case Plain:
		return f, nil
	case Gzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrCompressionFailed, err)
		}

		return zr, nil
	case Xz:
		zr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrCompressionFailed, err)
		}

		return zr, nil
	default:
		return nil, fmt.Errorf("%w: kind %v", errs.ErrUnsupportedTarget, kind)
	}
}
