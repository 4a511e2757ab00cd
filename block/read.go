package block

import (
	"github.com/CZ-NIC/go-cdns/cbor"
	"github.com/CZ-NIC/go-cdns/errs"
	"github.com/CZ-NIC/go-cdns/timestamp"
	"github.com/CZ-NIC/go-cdns/wire"
)

// Reader exposes one decoded block's tables and lazily-iterated generic
// event arrays. Unlike Block (the write-side accumulator), Reader holds raw
// decoded values and resolves table indices to their referents on demand.
type Reader struct {
	BlockParametersIndex int
	EarliestTime         timestamp.Timestamp
	HaveEarliestTime     bool

	ProcessedMessages  uint64
	QRDataItems        uint64
	UnmatchedQueries   uint64
	UnmatchedResponses uint64
	DiscardedOpcode    uint64
	MalformedItems     uint64

	IPAddress     [][]byte
	ClassType     []ClassType
	NameRdata     [][]byte
	QuerySig      []QuerySignature
	Qlist         []RecordList
	Qrr           []QuestionRecord
	RRList        []RecordList
	RR            []RRRecord
	MalformedData []MalformedMessageData

	ticksPerSecond uint64
	qrOffset       int
	queryResponses []rawQueryResponse
	mmOffset       int
	malformed      []rawMalformedMessage
	aecOffset      int
	addressEvents  []AddressEventCount
}

type rawQueryResponse struct {
	timeOffset int64
	qr         QueryResponse
}

type rawMalformedMessage struct {
	timeOffset int64
	mm         MalformedMessage
}

// ReadBlock decodes one C-DNS block from d. The block's own preamble names
// the BlockParameters entry it was produced under (BlockParametersIndex);
// the caller must resolve that entry's TicksPerSecond and pass it to
// SetTicksPerSecond before calling ReadGenericQR/ReadGenericMM, since time
// offsets are only resolved to absolute Timestamps lazily, on read.
func ReadBlock(d *cbor.Decoder) (*Reader, error) {
	r := &Reader{}

	length, indefinite, err := d.ReadMapStart()
	if err != nil {
		return nil, err
	}

	consume := func() error {
		key, err := d.ReadUnsigned()
		if err != nil {
			return err
		}

		return r.readField(d, key)
	}

	if !indefinite {
		for i := 0; i < length; i++ {
			if err := consume(); err != nil {
				return nil, err
			}
		}

		return r, nil
	}

	for {
		t, err := d.PeekType()
		if err != nil {
			return nil, err
		}

		if t == cbor.Break {
			return r, d.ReadBreak()
		}

		if err := consume(); err != nil {
			return nil, err
		}
	}
}

func (r *Reader) readField(d *cbor.Decoder, key uint64) error {
	switch key {
	case wire.KeyBlockPreamble:
		return r.readPreamble(d)
	case wire.KeyBlockStatistics:
		return r.readStatistics(d)
	case wire.KeyBlockTables:
		return r.readTables(d)
	case wire.KeyQueryResponses:
		return r.readQueryResponses(d)
	case wire.KeyAddressEventCounts:
		return r.readAddressEventCounts(d)
	case wire.KeyMalformedMessages:
		return r.readMalformedMessages(d)
	default:
		return d.SkipItem()
	}
}

func forEachMapEntry(d *cbor.Decoder, fn func(key uint64) error) error {
	length, indefinite, err := d.ReadMapStart()
	if err != nil {
		return err
	}

	if !indefinite {
		for i := 0; i < length; i++ {
			key, err := d.ReadUnsigned()
			if err != nil {
				return err
			}

			if err := fn(key); err != nil {
				return err
			}
		}

		return nil
	}

	for {
		t, err := d.PeekType()
		if err != nil {
			return err
		}

		if t == cbor.Break {
			return d.ReadBreak()
		}

		key, err := d.ReadUnsigned()
		if err != nil {
			return err
		}

		if err := fn(key); err != nil {
			return err
		}
	}
}

func forEachArrayElement(d *cbor.Decoder, fn func(index int) error) error {
	return d.ReadArray(fn)
}

func (r *Reader) readPreamble(d *cbor.Decoder) error {
	return forEachMapEntry(d, func(key uint64) error {
		switch key {
		case wire.KeyBlockParametersIndex:
			v, err := d.ReadUnsigned()
			r.BlockParametersIndex = int(v)

			return err
		case wire.KeyEarliestTime:
			r.HaveEarliestTime = true

			return forEachArrayElement(d, func(i int) error {
				v, err := d.ReadUnsigned()
				if err != nil {
					return err
				}

				if i == 0 {
					r.EarliestTime.Secs = v
				} else {
					r.EarliestTime.Ticks = v
				}

				return nil
			})
		default:
			return d.SkipItem()
		}
	})
}

func (r *Reader) readStatistics(d *cbor.Decoder) error {
	return forEachMapEntry(d, func(key uint64) error {
		v, err := d.ReadUnsigned()
		if err != nil {
			return err
		}

		switch key {
		case wire.KeyProcessedMessages:
			r.ProcessedMessages = v
		case wire.KeyQRDataItems:
			r.QRDataItems = v
		case wire.KeyUnmatchedQueries:
			r.UnmatchedQueries = v
		case wire.KeyUnmatchedResponses:
			r.UnmatchedResponses = v
		case wire.KeyDiscardedOpcode:
			r.DiscardedOpcode = v
		case wire.KeyMalformedItems:
			r.MalformedItems = v
		}

		return nil
	})
}

func (r *Reader) readTables(d *cbor.Decoder) error {
	return forEachMapEntry(d, func(key uint64) error {
		switch key {
		case wire.KeyIPAddress:
			return forEachArrayElement(d, func(int) error {
				b, err := d.ReadBytestring()
				r.IPAddress = append(r.IPAddress, b)

				return err
			})
		case wire.KeyClassType:
			return forEachArrayElement(d, func(int) error {
				ct, err := readClassType(d)
				r.ClassType = append(r.ClassType, ct)

				return err
			})
		case wire.KeyNameRdata:
			return forEachArrayElement(d, func(int) error {
				b, err := d.ReadBytestring()
				r.NameRdata = append(r.NameRdata, b)

				return err
			})
		case wire.KeyQuerySignature:
			return forEachArrayElement(d, func(int) error {
				sig, err := readQuerySignature(d)
				r.QuerySig = append(r.QuerySig, sig)

				return err
			})
		case wire.KeyQlist:
			return forEachArrayElement(d, func(int) error {
				l, err := readIndexList(d)
				r.Qlist = append(r.Qlist, l)

				return err
			})
		case wire.KeyQrr:
			return forEachArrayElement(d, func(int) error {
				q, err := readQuestionRecord(d)
				r.Qrr = append(r.Qrr, q)

				return err
			})
		case wire.KeyRRList:
			return forEachArrayElement(d, func(int) error {
				l, err := readIndexList(d)
				r.RRList = append(r.RRList, l)

				return err
			})
		case wire.KeyRR:
			return forEachArrayElement(d, func(int) error {
				rr, err := readRRRecord(d)
				r.RR = append(r.RR, rr)

				return err
			})
		case wire.KeyMalformedMessageData:
			return forEachArrayElement(d, func(int) error {
				m, err := readMalformedMessageData(d)
				r.MalformedData = append(r.MalformedData, m)

				return err
			})
		default:
			return d.SkipItem()
		}
	})
}

func readClassType(d *cbor.Decoder) (ClassType, error) {
	var ct ClassType

	err := forEachMapEntry(d, func(key uint64) error {
		v, err := d.ReadUnsigned()
		if err != nil {
			return err
		}

		switch key {
		case wire.KeyTypeID:
			ct.Type = uint16(v)
		case wire.KeyClassID:
			ct.Class = uint16(v)
		}

		return nil
	})

	return ct, err
}

func readIndexList(d *cbor.Decoder) (RecordList, error) {
	var l RecordList

	err := forEachArrayElement(d, func(int) error {
		v, err := d.ReadUnsigned()
		if err != nil {
			return err
		}

		idx, _ := FromWireIndex(v)
		l.Indices = append(l.Indices, idx)

		return nil
	})

	return l, err
}

func readQuestionRecord(d *cbor.Decoder) (QuestionRecord, error) {
	var q QuestionRecord

	err := forEachMapEntry(d, func(key uint64) error {
		v, err := d.ReadUnsigned()
		if err != nil {
			return err
		}

		switch key {
		case wire.KeyNameIndex:
			q.NameIndex, _ = FromWireIndex(v)
		case wire.KeyClassTypeIndex:
			q.ClassTypeIndex, q.HasClassType = FromWireIndex(v)
		}

		return nil
	})

	return q, err
}

func readRRRecord(d *cbor.Decoder) (RRRecord, error) {
	var r RRRecord

	err := forEachMapEntry(d, func(key uint64) error {
		switch key {
		case wire.KeyNameIndex:
			v, err := d.ReadUnsigned()
			r.NameIndex, _ = FromWireIndex(v)

			return err
		case wire.KeyClassTypeIndex:
			v, err := d.ReadUnsigned()
			r.ClassTypeIndex, r.HasClassType = FromWireIndex(v)

			return err
		case wire.KeyTTL:
			v, err := d.ReadUnsigned()
			r.TTL = uint32(v)
			r.HasTTL = true

			return err
		case wire.KeyRdataIndex:
			v, err := d.ReadUnsigned()
			r.RdataIndex, r.HasRdata = FromWireIndex(v)

			return err
		default:
			return d.SkipItem()
		}
	})

	return r, err
}

func readMalformedMessageData(d *cbor.Decoder) (MalformedMessageData, error) {
	var m MalformedMessageData

	err := forEachMapEntry(d, func(key uint64) error {
		switch key {
		case wire.KeyMMServerAddressIndex:
			v, err := d.ReadUnsigned()
			m.ServerAddressIndex, m.HasServerAddress = FromWireIndex(v)

			return err
		case wire.KeyMMServerPort:
			v, err := d.ReadUnsigned()
			m.ServerPort = uint16(v)
			m.HasServerPort = true

			return err
		case wire.KeyMMTransportFlags:
			v, err := d.ReadUnsigned()
			m.TransportFlags = uint8(v)
			m.HasTransportFlags = true

			return err
		case wire.KeyMMPayload:
			b, err := d.ReadBytestring()
			m.Payload = b
			m.HasPayload = true

			return err
		default:
			return d.SkipItem()
		}
	})

	return m, err
}

func readQuerySignature(d *cbor.Decoder) (QuerySignature, error) {
	var s QuerySignature

	err := forEachMapEntry(d, func(key uint64) error {
		switch key {
		case wire.KeyServerAddressIndex:
			v, err := d.ReadUnsigned()
			s.ServerAddressIndex, s.HasServerAddress = FromWireIndex(v)

			return err
		case wire.KeyServerPort:
			v, err := d.ReadUnsigned()
			s.ServerPort, s.HasServerPort = uint16(v), true

			return err
		case wire.KeyQRTransportFlags:
			v, err := d.ReadUnsigned()
			s.QRTransportFlags = uint8(v)

			return err
		case wire.KeyQRType:
			v, err := d.ReadUnsigned()
			s.QRType = uint8(v)

			return err
		case wire.KeyQRSigFlags:
			v, err := d.ReadUnsigned()
			s.QRSigFlags = uint8(v)

			return err
		case wire.KeyQueryOpcode:
			v, err := d.ReadUnsigned()
			s.QueryOpcode, s.HasQueryOpcode = uint8(v), true

			return err
		case wire.KeyQRDNSFlags:
			v, err := d.ReadUnsigned()
			s.QRDNSFlags = uint16(v)

			return err
		case wire.KeyQueryRcode:
			v, err := d.ReadUnsigned()
			s.QueryRcode, s.HasQueryRcode = uint8(v), true

			return err
		case wire.KeyQueryClassTypeIndex:
			v, err := d.ReadUnsigned()
			s.QueryClassTypeIndex, s.HasQueryClassType = FromWireIndex(v)

			return err
		case wire.KeyQueryQDCount:
			v, err := d.ReadUnsigned()
			s.QueryQDCount, s.HasQueryQDCount = uint16(v), true

			return err
		case wire.KeyQueryANCount:
			v, err := d.ReadUnsigned()
			s.QueryANCount, s.HasQueryANCount = uint16(v), true

			return err
		case wire.KeyQueryNSCount:
			v, err := d.ReadUnsigned()
			s.QueryNSCount, s.HasQueryNSCount = uint16(v), true

			return err
		case wire.KeyQueryARCount:
			v, err := d.ReadUnsigned()
			s.QueryARCount, s.HasQueryARCount = uint16(v), true

			return err
		case wire.KeyQueryEDNSVersion:
			v, err := d.ReadUnsigned()
			s.QueryEDNSVersion, s.HasQueryEDNSVersion = uint8(v), true

			return err
		case wire.KeyQueryUDPSize:
			v, err := d.ReadUnsigned()
			s.QueryUDPSize, s.HasQueryUDPSize = uint16(v), true

			return err
		case wire.KeyQueryOptRdataIndex:
			v, err := d.ReadUnsigned()
			s.QueryOptRdataIndex, s.HasQueryOptRdata = FromWireIndex(v)

			return err
		case wire.KeyResponseRcode:
			v, err := d.ReadUnsigned()
			s.ResponseRcode, s.HasResponseRcode = uint8(v), true

			return err
		default:
			return d.SkipItem()
		}
	})

	return s, err
}

func (r *Reader) readQueryResponses(d *cbor.Decoder) error {
	return forEachArrayElement(d, func(int) error {
		qr, offset, err := readQueryResponse(d)
		if err != nil {
			return err
		}

		r.queryResponses = append(r.queryResponses, rawQueryResponse{timeOffset: offset, qr: qr})

		return nil
	})
}

func readQueryResponse(d *cbor.Decoder) (QueryResponse, int64, error) {
	var qr QueryResponse

	var offset int64

	err := forEachMapEntry(d, func(key uint64) error {
		switch key {
		case wire.KeyTimeOffset:
			v, err := d.ReadInteger()
			offset = v

			return err
		case wire.KeyClientAddressIndex:
			v, err := d.ReadUnsigned()
			qr.ClientAddressIndex, qr.HasClientAddress = FromWireIndex(v)

			return err
		case wire.KeyClientPort:
			v, err := d.ReadUnsigned()
			qr.ClientPort, qr.HasClientPort = uint16(v), true

			return err
		case wire.KeyTransactionID:
			v, err := d.ReadUnsigned()
			qr.TransactionID, qr.HasTransactionID = uint16(v), true

			return err
		case wire.KeyQRSignatureIndex:
			v, err := d.ReadUnsigned()
			qr.QRSignatureIndex, qr.HasQRSignature = FromWireIndex(v)

			return err
		case wire.KeyClientHoplimit:
			v, err := d.ReadUnsigned()
			qr.ClientHoplimit, qr.HasClientHoplimit = uint8(v), true

			return err
		case wire.KeyResponseDelay:
			v, err := d.ReadInteger()
			qr.ResponseDelay, qr.HasResponseDelay = v, true

			return err
		case wire.KeyQueryNameIndex:
			v, err := d.ReadUnsigned()
			qr.QueryNameIndex, qr.HasQueryName = FromWireIndex(v)

			return err
		case wire.KeyQuerySize:
			v, err := d.ReadUnsigned()
			qr.QuerySize, qr.HasQuerySize = uint32(v), true

			return err
		case wire.KeyResponseSize:
			v, err := d.ReadUnsigned()
			qr.ResponseSize, qr.HasResponseSize = uint32(v), true

			return err
		case wire.KeyResponseProcessingData:
			rp, err := readResponseProcessingData(d)
			qr.ResponseProcessing, qr.HasResponseProcessing = rp, true

			return err
		case wire.KeyQueryExtended:
			x, err := readQueryResponseExtended(d)
			qr.QueryExtended, qr.HasQueryExtended = x, true

			return err
		case wire.KeyResponseExtended:
			x, err := readQueryResponseExtended(d)
			qr.ResponseExtended, qr.HasResponseExtended = x, true

			return err
		case wire.KeyASN:
			v, err := d.ReadUnsigned()
			qr.ASN, qr.HasASN = uint32(v), true

			return err
		case wire.KeyCountryCode:
			v, err := d.ReadTextstring()
			qr.CountryCode, qr.HasCountryCode = v, true

			return err
		case wire.KeyRoundTripTime:
			v, err := d.ReadInteger()
			qr.RoundTripTime, qr.HasRoundTripTime = v, true

			return err
		default:
			return d.SkipItem()
		}
	})

	return qr, offset, err
}

func readResponseProcessingData(d *cbor.Decoder) (ResponseProcessingData, error) {
	var rp ResponseProcessingData

	err := forEachMapEntry(d, func(key uint64) error {
		switch key {
		case wire.KeyBailiwickIndex:
			v, err := d.ReadUnsigned()
			rp.BailiwickIndex, rp.HasBailiwick = FromWireIndex(v)

			return err
		case wire.KeyProcessingFlags:
			v, err := d.ReadUnsigned()
			rp.ProcessingFlags, rp.HasProcessing = uint8(v), true

			return err
		default:
			return d.SkipItem()
		}
	})

	return rp, err
}

func readQueryResponseExtended(d *cbor.Decoder) (QueryResponseExtended, error) {
	var x QueryResponseExtended

	err := forEachMapEntry(d, func(key uint64) error {
		switch key {
		case wire.KeyQuestionIndex:
			v, err := d.ReadUnsigned()
			x.QuestionIndex, x.HasQuestion = FromWireIndex(v)

			return err
		case wire.KeyAnswerIndex:
			v, err := d.ReadUnsigned()
			x.AnswerIndex, x.HasAnswer = FromWireIndex(v)

			return err
		case wire.KeyAuthorityIndex:
			v, err := d.ReadUnsigned()
			x.AuthorityIndex, x.HasAuthority = FromWireIndex(v)

			return err
		case wire.KeyAdditionalIndex:
			v, err := d.ReadUnsigned()
			x.AdditionalIndex, x.HasAdditional = FromWireIndex(v)

			return err
		default:
			return d.SkipItem()
		}
	})

	return x, err
}

func (r *Reader) readAddressEventCounts(d *cbor.Decoder) error {
	return forEachArrayElement(d, func(int) error {
		var aec AddressEventCount

		err := forEachMapEntry(d, func(key uint64) error {
			switch key {
			case wire.KeyAECode:
				v, err := d.ReadUnsigned()
				aec.Code = uint8(v)

				return err
			case wire.KeyAETransportFlags:
				v, err := d.ReadUnsigned()
				aec.TransportFlags = uint8(v)

				return err
			case wire.KeyAEAddressIndex:
				v, err := d.ReadUnsigned()
				aec.AddressIndex, aec.HasAddressIndex = FromWireIndex(v)

				return err
			case wire.KeyAECount:
				v, err := d.ReadUnsigned()
				aec.Count = v

				return err
			default:
				return d.SkipItem()
			}
		})
		if err != nil {
			return err
		}

		r.addressEvents = append(r.addressEvents, aec)

		return nil
	})
}

func (r *Reader) readMalformedMessages(d *cbor.Decoder) error {
	return forEachArrayElement(d, func(int) error {
		var mm MalformedMessage

		var offset int64

		err := forEachMapEntry(d, func(key uint64) error {
			switch key {
			case wire.KeyTimeOffset:
				v, err := d.ReadInteger()
				offset = v

				return err
			case wire.KeyClientAddressIndex:
				v, err := d.ReadUnsigned()
				mm.ClientAddressIndex, mm.HasClientAddress = FromWireIndex(v)

				return err
			case wire.KeyClientPort:
				v, err := d.ReadUnsigned()
				mm.ClientPort, mm.HasClientPort = uint16(v), true

				return err
			case wire.KeyMessageDataIndex:
				v, err := d.ReadUnsigned()
				mm.MessageDataIndex, mm.HasMessageData = FromWireIndex(v)

				return err
			default:
				return d.SkipItem()
			}
		})
		if err != nil {
			return err
		}

		r.malformed = append(r.malformed, rawMalformedMessage{timeOffset: offset, mm: mm})

		return nil
	})
}

// SetTicksPerSecond records the tick resolution to use when resolving time
// offsets to absolute Timestamps in ReadGenericQR/ReadGenericMM. The caller
// looks this value up from the BlockParameters entry named by
// BlockParametersIndex.
func (r *Reader) SetTicksPerSecond(ticksPerSecond uint64) {
	r.ticksPerSecond = ticksPerSecond
}

// ReadGenericQR returns the next buffered query/response event with its
// Time resolved from the stored offset, or end=true once all have been
// consumed.
func (r *Reader) ReadGenericQR() (qr QueryResponse, end bool) {
	if r.qrOffset >= len(r.queryResponses) {
		return QueryResponse{}, true
	}

	raw := r.queryResponses[r.qrOffset]
	r.qrOffset++

	qr = raw.qr
	qr.Time = r.EarliestTime.AddTimeOffset(raw.timeOffset, r.ticksPerSecond)

	return qr, false
}

// ReadGenericMM returns the next buffered malformed-message event, or
// end=true once all have been consumed.
func (r *Reader) ReadGenericMM() (mm MalformedMessage, end bool) {
	if r.mmOffset >= len(r.malformed) {
		return MalformedMessage{}, true
	}

	raw := r.malformed[r.mmOffset]
	r.mmOffset++

	mm = raw.mm
	mm.Time = r.EarliestTime.AddTimeOffset(raw.timeOffset, r.ticksPerSecond)

	return mm, false
}

// ReadGenericAEC returns the next address-event-count entry, or end=true
// once all have been consumed.
func (r *Reader) ReadGenericAEC() (aec AddressEventCount, end bool) {
	if r.aecOffset >= len(r.addressEvents) {
		return AddressEventCount{}, true
	}

	aec = r.addressEvents[r.aecOffset]
	r.aecOffset++

	return aec, false
}

// resolveIndex turns a 0-based table index into a value, returning
// errs.ErrDanglingIndex if the index is out of range.
func resolveIndex[T any](values []T, index int) (T, error) {
	var zero T

	if index < 0 || index >= len(values) {
		return zero, errs.ErrDanglingIndex
	}

	return values[index], nil
}

// ResolveIPAddress looks up an interned address by the index a
// QueryResponse/QuerySignature/MalformedMessageData field referenced.
func (r *Reader) ResolveIPAddress(index int) ([]byte, error) {
	return resolveIndex(r.IPAddress, index)
}

// ResolveNameRdata looks up an interned name or RDATA blob by index.
func (r *Reader) ResolveNameRdata(index int) ([]byte, error) {
	return resolveIndex(r.NameRdata, index)
}

// ResolveClassType looks up an interned CLASS/TYPE pair by index.
func (r *Reader) ResolveClassType(index int) (ClassType, error) {
	return resolveIndex(r.ClassType, index)
}

// ResolveQuerySignature looks up an interned query signature by index.
func (r *Reader) ResolveQuerySignature(index int) (QuerySignature, error) {
	return resolveIndex(r.QuerySig, index)
}
