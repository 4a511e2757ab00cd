package cbor

import (
	"bufio"
	"fmt"
	"io"

	"github.com/CZ-NIC/go-cdns/errs"
)

// Decoder reads CBOR items from an underlying io.Reader. It is strictly
// forward/streaming: there is no seek-back, matching the reader's
// forward-only contract (§1 Non-goals).
type Decoder struct {
	r   *bufio.Reader
	off int64
}

// NewDecoder wraps r for CBOR item reads.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

func (d *Decoder) wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: "+format, append([]any{sentinel, d.off}, args...)...)
}

func (d *Decoder) readByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, d.wrapf(errs.ErrTruncated, "unexpected EOF")
		}

		return 0, err
	}

	d.off++

	return b, nil
}

func (d *Decoder) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, d.wrapf(errs.ErrTruncated, "need %d bytes: %v", n, err)
	}

	d.off += int64(n)

	return buf, nil
}

// header describes one decoded CBOR item header: its major type, additional
// info byte, and (for non-indefinite items) the decoded count/value.
type header struct {
	major      byte
	additional byte
	count      uint64
	indefinite bool
}

func (d *Decoder) peekHeaderByte() (byte, error) {
	b, err := d.r.Peek(1)
	if err != nil {
		if err == io.EOF {
			return 0, d.wrapf(errs.ErrTruncated, "unexpected EOF")
		}

		return 0, err
	}

	return b[0], nil
}

func (d *Decoder) readHeader() (header, error) {
	first, err := d.readByte()
	if err != nil {
		return header{}, err
	}

	major := first >> 5
	additional := first & 0x1f

	h := header{major: major, additional: additional}

	switch {
	case additional < additionalOneByte:
		h.count = uint64(additional)
	case additional == additionalOneByte:
		b, err := d.readN(1)
		if err != nil {
			return header{}, err
		}

		h.count = uint64(b[0])
	case additional == additionalTwoByte:
		b, err := d.readN(2)
		if err != nil {
			return header{}, err
		}

		h.count = uint64(wireEndian.Uint16(b))
	case additional == additionalFourByte:
		b, err := d.readN(4)
		if err != nil {
			return header{}, err
		}

		h.count = uint64(wireEndian.Uint32(b))
	case additional == additionalEightByte:
		b, err := d.readN(8)
		if err != nil {
			return header{}, err
		}

		h.count = wireEndian.Uint64(b)
	case additional == additionalIndefinite:
		h.indefinite = true
	default:
		return header{}, d.wrapf(errs.ErrMalformedHeader, "reserved additional info %d", additional)
	}

	return h, nil
}

// PeekType reports the Type of the next item without consuming it.
func (d *Decoder) PeekType() (Type, error) {
	b, err := d.peekHeaderByte()
	if err != nil {
		return Unknown, err
	}

	major := b >> 5
	additional := b & 0x1f

	switch major {
	case majorUnsigned:
		return Unsigned, nil
	case majorNegative:
		return Negative, nil
	case majorByteString:
		return ByteString, nil
	case majorTextString:
		return TextString, nil
	case majorArray:
		return Array, nil
	case majorMap:
		return Map, nil
	case majorTag:
		return Tag, nil
	case majorSimple:
		if additional == additionalIndefinite {
			return Break, nil
		}

		return Simple, nil
	default:
		return Unknown, d.wrapf(errs.ErrMalformedHeader, "invalid major type %d", major)
	}
}

// ReadUnsigned reads an unsigned integer item.
func (d *Decoder) ReadUnsigned() (uint64, error) {
	h, err := d.readHeader()
	if err != nil {
		return 0, err
	}

	if h.major != majorUnsigned {
		return 0, d.wrapf(errs.ErrUnexpectedType, "expected UNSIGNED, got major type %d", h.major)
	}

	return h.count, nil
}

// ReadNegative reads a negative-major-type integer item and returns it as a
// signed value (always < 0).
func (d *Decoder) ReadNegative() (int64, error) {
	h, err := d.readHeader()
	if err != nil {
		return 0, err
	}

	if h.major != majorNegative {
		return 0, d.wrapf(errs.ErrUnexpectedType, "expected NEGATIVE, got major type %d", h.major)
	}

	return -1 - int64(h.count), nil
}

// ReadInteger reads either an unsigned or negative integer item and returns
// it as a signed value.
func (d *Decoder) ReadInteger() (int64, error) {
	t, err := d.PeekType()
	if err != nil {
		return 0, err
	}

	switch t {
	case Unsigned:
		v, err := d.ReadUnsigned()
		return int64(v), err
	case Negative:
		return d.ReadNegative()
	default:
		return 0, d.wrapf(errs.ErrUnexpectedType, "expected UNSIGNED or NEGATIVE, got %s", t)
	}
}

// ReadBool reads a boolean simple-value item.
func (d *Decoder) ReadBool() (bool, error) {
	h, err := d.readHeader()
	if err != nil {
		return false, err
	}

	if h.major != majorSimple {
		return false, d.wrapf(errs.ErrUnexpectedType, "expected SIMPLE, got major type %d", h.major)
	}

	switch h.additional {
	case simpleTrue:
		return true, nil
	case simpleFalse:
		return false, nil
	default:
		return false, d.wrapf(errs.ErrUnexpectedType, "expected bool simple value, got %d", h.additional)
	}
}

// ReadBytestring reads a byte-string item.
func (d *Decoder) ReadBytestring() ([]byte, error) {
	h, err := d.readHeader()
	if err != nil {
		return nil, err
	}

	if h.major != majorByteString {
		return nil, d.wrapf(errs.ErrUnexpectedType, "expected BYTE_STRING, got major type %d", h.major)
	}

	if h.indefinite {
		return nil, d.wrapf(errs.ErrUnexpectedType, "indefinite byte strings are not supported")
	}

	return d.readN(int(h.count))
}

// ReadTextstring reads a text-string item.
func (d *Decoder) ReadTextstring() (string, error) {
	b, err := d.readRawString(majorTextString)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func (d *Decoder) readRawString(major byte) ([]byte, error) {
	h, err := d.readHeader()
	if err != nil {
		return nil, err
	}

	if h.major != major {
		return nil, d.wrapf(errs.ErrUnexpectedType, "expected major type %d, got %d", major, h.major)
	}

	if h.indefinite {
		return nil, d.wrapf(errs.ErrUnexpectedType, "indefinite strings are not supported")
	}

	return d.readN(int(h.count))
}

// ReadArrayStart reads an array header, returning its length (0 if
// indefinite) and whether it was indefinite-length.
func (d *Decoder) ReadArrayStart() (length int, indefinite bool, err error) {
	h, err := d.readHeader()
	if err != nil {
		return 0, false, err
	}

	if h.major != majorArray {
		return 0, false, d.wrapf(errs.ErrUnexpectedType, "expected ARRAY, got major type %d", h.major)
	}

	return int(h.count), h.indefinite, nil
}

// ReadMapStart reads a map header, returning its length in key/value pairs
// (0 if indefinite) and whether it was indefinite-length.
func (d *Decoder) ReadMapStart() (length int, indefinite bool, err error) {
	h, err := d.readHeader()
	if err != nil {
		return 0, false, err
	}

	if h.major != majorMap {
		return 0, false, d.wrapf(errs.ErrUnexpectedType, "expected MAP, got major type %d", h.major)
	}

	return int(h.count), h.indefinite, nil
}

// ReadTag reads a tag item, returning the tag value; the tagged item itself
// must be read next by the caller.
func (d *Decoder) ReadTag() (uint64, error) {
	h, err := d.readHeader()
	if err != nil {
		return 0, err
	}

	if h.major != majorTag {
		return 0, d.wrapf(errs.ErrUnexpectedType, "expected TAG, got major type %d", h.major)
	}

	return h.count, nil
}

// ReadBreak consumes a break stop code.
func (d *Decoder) ReadBreak() error {
	h, err := d.readHeader()
	if err != nil {
		return err
	}

	if h.major != majorSimple || !h.indefinite {
		return d.wrapf(errs.ErrUnexpectedType, "expected BREAK")
	}

	return nil
}

// ReadArray reads an array header (definite or indefinite) and invokes
// consumeElement once per element, passing the element's 0-based index.
// For a definite array it loops exactly length times; for an indefinite
// array it loops until a BREAK is encountered, which it then consumes.
func (d *Decoder) ReadArray(consumeElement func(index int) error) error {
	length, indefinite, err := d.ReadArrayStart()
	if err != nil {
		return err
	}

	if !indefinite {
		for i := 0; i < length; i++ {
			if err := consumeElement(i); err != nil {
				return err
			}
		}

		return nil
	}

	for i := 0; ; i++ {
		t, err := d.PeekType()
		if err != nil {
			return err
		}

		if t == Break {
			return d.ReadBreak()
		}

		if err := consumeElement(i); err != nil {
			return err
		}
	}
}

// SkipItem recursively discards exactly one CBOR item, including every
// element of a nested array or map, leaving the stream positioned at the
// start of the following item.
func (d *Decoder) SkipItem() error {
	t, err := d.PeekType()
	if err != nil {
		return err
	}

	switch t {
	case Unsigned:
		_, err := d.ReadUnsigned()
		return err
	case Negative:
		_, err := d.ReadNegative()
		return err
	case ByteString:
		_, err := d.ReadBytestring()
		return err
	case TextString:
		_, err := d.ReadTextstring()
		return err
	case Tag:
		if _, err := d.ReadTag(); err != nil {
			return err
		}

		return d.SkipItem()
	case Simple:
		_, err := d.readHeader()
		return err
	case Array:
		return d.ReadArray(func(int) error { return d.SkipItem() })
	case Map:
		length, indefinite, err := d.ReadMapStart()
		if err != nil {
			return err
		}

		if !indefinite {
			for i := 0; i < length; i++ {
				if err := d.SkipItem(); err != nil {
					return err
				}

				if err := d.SkipItem(); err != nil {
					return err
				}
			}

			return nil
		}

		for {
			pt, err := d.PeekType()
			if err != nil {
				return err
			}

			if pt == Break {
				return d.ReadBreak()
			}

			if err := d.SkipItem(); err != nil {
				return err
			}

			if err := d.SkipItem(); err != nil {
				return err
			}
		}
	default:
		return d.wrapf(errs.ErrUnexpectedType, "cannot skip item of type %s", t)
	}
}
