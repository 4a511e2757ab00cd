package cbor

import (
	"io"

	"github.com/CZ-NIC/go-cdns/endian"
	"github.com/CZ-NIC/go-cdns/internal/pool"
)

// wireEndian is CBOR's mandated byte order for multi-byte integer headers
// (RFC 8949 §3: "network byte order"), regardless of host endianness.
var wireEndian = endian.GetBigEndianEngine()

// Encoder writes CBOR items to an underlying io.Writer (typically a
// stream.Writer, so a plain/gzip/xz backend and output rotation are
// transparent to it).
//
// Once any write fails, the Encoder is poisoned: the first error is
// remembered and returned by every subsequent call without touching the
// underlying writer again (§7: "the encoder does not recover").
type Encoder struct {
	w       io.Writer
	err     error
	written uint64
}

// NewEncoder wraps w for CBOR item writes.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Err returns the first error the Encoder encountered, if any.
func (e *Encoder) Err() error { return e.err }

// Written returns the cumulative number of bytes e has successfully written
// to its underlying writer so far. Callers that need the size of a single
// item or block take a reading before and after and subtract.
func (e *Encoder) Written() uint64 { return e.written }

// SetWriter swaps the underlying writer, used by rotate_output: the caller
// closes the old writer and hands the Encoder a fresh one. It does not
// clear a poisoned error or reset the Written counter.
func (e *Encoder) SetWriter(w io.Writer) { e.w = w }

func (e *Encoder) raw(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}

	n, err := e.w.Write(p)
	e.written += uint64(n)

	if err != nil {
		e.err = err
	}

	return n, e.err
}

// writeHeader emits a major-type/additional-info header using the shortest
// CBOR form that fits count, per RFC 8949 §3.1.
func (e *Encoder) writeHeader(major byte, count uint64) (int, error) {
	buf := pool.GetItemBuffer()
	defer pool.PutItemBuffer(buf)

	appendHeader(buf, major, count)

	return e.raw(buf.Bytes())
}

func appendHeader(buf *pool.ByteBuffer, major byte, count uint64) {
	m := major << 5

	switch {
	case count < additionalOneByte:
		buf.MustWrite([]byte{m | byte(count)})
	case count <= 0xff:
		buf.MustWrite([]byte{m | additionalOneByte, byte(count)})
	case count <= 0xffff:
		buf.MustWrite([]byte{m | additionalTwoByte})
		buf.B = wireEndian.AppendUint16(buf.B, uint16(count))
	case count <= 0xffffffff:
		buf.MustWrite([]byte{m | additionalFourByte})
		buf.B = wireEndian.AppendUint32(buf.B, uint32(count))
	default:
		buf.MustWrite([]byte{m | additionalEightByte})
		buf.B = wireEndian.AppendUint64(buf.B, count)
	}
}

// WriteArrayStart writes a definite-length array header.
func (e *Encoder) WriteArrayStart(length int) error {
	_, err := e.writeHeader(majorArray, uint64(length))
	return err
}

// WriteIndefArrayStart writes an indefinite-length array header.
func (e *Encoder) WriteIndefArrayStart() error {
	_, err := e.raw([]byte{majorArray<<5 | additionalIndefinite})
	return err
}

// WriteMapStart writes a definite-length map header (length is the number
// of key/value pairs, not the number of CBOR items).
func (e *Encoder) WriteMapStart(length int) error {
	_, err := e.writeHeader(majorMap, uint64(length))
	return err
}

// WriteIndefMapStart writes an indefinite-length map header.
func (e *Encoder) WriteIndefMapStart() error {
	_, err := e.raw([]byte{majorMap<<5 | additionalIndefinite})
	return err
}

// WriteBreak writes the CBOR break stop code, closing the innermost
// indefinite array or map.
func (e *Encoder) WriteBreak() error {
	_, err := e.raw([]byte{majorSimple<<5 | additionalIndefinite})
	return err
}

// WriteBool writes a CBOR boolean simple value.
func (e *Encoder) WriteBool(b bool) error {
	v := byte(simpleFalse)
	if b {
		v = simpleTrue
	}

	_, err := e.raw([]byte{majorSimple<<5 | v})

	return err
}

// WriteUint8 writes an unsigned integer using the shortest CBOR form.
func (e *Encoder) WriteUint8(n uint8) error {
	_, err := e.writeHeader(majorUnsigned, uint64(n))
	return err
}

// WriteUint16 writes an unsigned integer using the shortest CBOR form.
func (e *Encoder) WriteUint16(n uint16) error {
	_, err := e.writeHeader(majorUnsigned, uint64(n))
	return err
}

// WriteUint32 writes an unsigned integer using the shortest CBOR form.
func (e *Encoder) WriteUint32(n uint32) error {
	_, err := e.writeHeader(majorUnsigned, uint64(n))
	return err
}

// WriteUint64 writes an unsigned integer using the shortest CBOR form.
func (e *Encoder) WriteUint64(n uint64) error {
	_, err := e.writeHeader(majorUnsigned, n)
	return err
}

// writeSignedMagnitude encodes a negative value's CBOR magnitude n = -(v+1).
func writeSignedMagnitude(v int64) (major byte, magnitude uint64) {
	if v >= 0 {
		return majorUnsigned, uint64(v)
	}

	return majorNegative, uint64(-(v + 1))
}

// WriteInt8 writes a signed integer, using the negative major type for
// values below zero and the shortest CBOR form for the magnitude.
func (e *Encoder) WriteInt8(n int8) error { return e.writeSigned(int64(n)) }

// WriteInt16 writes a signed integer, using the negative major type for
// values below zero and the shortest CBOR form for the magnitude.
func (e *Encoder) WriteInt16(n int16) error { return e.writeSigned(int64(n)) }

// WriteInt32 writes a signed integer, using the negative major type for
// values below zero and the shortest CBOR form for the magnitude.
func (e *Encoder) WriteInt32(n int32) error { return e.writeSigned(int64(n)) }

// WriteInt64 writes a signed integer, using the negative major type for
// values below zero and the shortest CBOR form for the magnitude.
func (e *Encoder) WriteInt64(n int64) error { return e.writeSigned(n) }

func (e *Encoder) writeSigned(v int64) error {
	major, magnitude := writeSignedMagnitude(v)
	_, err := e.writeHeader(major, magnitude)

	return err
}

// WriteBytestring writes a CBOR byte string.
func (e *Encoder) WriteBytestring(b []byte) error {
	if _, err := e.writeHeader(majorByteString, uint64(len(b))); err != nil {
		return err
	}

	_, err := e.raw(b)

	return err
}

// WriteTextstring writes a CBOR text string.
func (e *Encoder) WriteTextstring(s string) error {
	if _, err := e.writeHeader(majorTextString, uint64(len(s))); err != nil {
		return err
	}

	_, err := e.raw([]byte(s))

	return err
}

// WriteTag writes a CBOR tag header; the tagged item must be written next.
func (e *Encoder) WriteTag(tag uint64) error {
	_, err := e.writeHeader(majorTag, tag)
	return err
}
