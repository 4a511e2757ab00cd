package block

import (
	"github.com/CZ-NIC/go-cdns/cbor"
	"github.com/CZ-NIC/go-cdns/errs"
	"github.com/CZ-NIC/go-cdns/timestamp"
	"github.com/CZ-NIC/go-cdns/wire"
)

// Block accumulates one C-DNS block's worth of deduplicated tables and
// generic events, ready to be serialized once full or once the exporter
// flushes it. A Block is not safe for concurrent use.
type Block struct {
	blockParametersIndex int
	ticksPerSecond       uint64
	earliestTime         timestamp.Timestamp
	haveEarliestTime     bool
	maxItems             uint32

	ipAddress    *InternTable[string]
	classType    *InternTable[ClassType]
	nameRdata    *InternTable[string]
	querySig     *InternTable[QuerySignature]
	qlist        *InternTable[RecordList]
	qrr          *InternTable[QuestionRecord]
	rrlist       *InternTable[RecordList]
	rr           *InternTable[RRRecord]
	malformedData *InternTable[MalformedMessageData]

	queryResponses     []QueryResponse
	malformedMessages  []MalformedMessage
	addressEventCounts []AddressEventCount
	aecIndex           map[string]int // coalescing identity -> position in addressEventCounts

	processedMessages  uint64
	qrDataItems        uint64
	unmatchedQueries   uint64
	unmatchedResponses uint64
	discardedOpcode    uint64
	malformedItems     uint64
}

// NewBlock creates an empty block governed by the BlockParameters at the
// given 0-based index, capping item count at maxItems (use 0 for no cap).
// ticksPerSecond must match that BlockParameters entry's StorageParameters,
// since it governs how each event's Timestamp is turned into a time offset
// relative to the block's earliest time.
func NewBlock(blockParametersIndex int, maxItems uint32, ticksPerSecond uint64) *Block {
	return &Block{
		blockParametersIndex: blockParametersIndex,
		ticksPerSecond:       ticksPerSecond,
		maxItems:             maxItems,
		ipAddress:            NewInternTable(func(s string) string { return s }),
		classType:            NewInternTable(classTypeKey),
		nameRdata:            NewInternTable(func(s string) string { return s }),
		querySig:             NewInternTable(querySignatureKey),
		qlist:                NewInternTable(recordListKey),
		qrr:                  NewInternTable(questionRecordKey),
		rrlist:               NewInternTable(recordListKey),
		rr:                   NewInternTable(rrRecordKey),
		malformedData:        NewInternTable(malformedMessageDataKey),
		aecIndex:             make(map[string]int),
	}
}

// BlockParametersIndex returns the 0-based BlockParameters index this block
// was created under.
func (b *Block) BlockParametersIndex() int { return b.blockParametersIndex }

// SetBlockParametersIndex changes the governing BlockParameters index. Per
// §3 this is only valid while the block is empty.
func (b *Block) SetBlockParametersIndex(index int) error {
	if b.GetItemCount() > 0 {
		return errs.ErrBlockNotEmpty
	}

	b.blockParametersIndex = index

	return nil
}

// GetItemCount returns the total number of generic events buffered in this
// block (query/responses + malformed messages + address event counts).
func (b *Block) GetItemCount() int {
	return len(b.queryResponses) + len(b.malformedMessages) + len(b.addressEventCounts)
}

// IsFull reports whether the block has reached its configured item cap.
func (b *Block) IsFull() bool {
	if b.maxItems == 0 {
		return false
	}

	return uint32(b.GetItemCount()) >= b.maxItems
}

// touchEarliestTime records t as the block's earliest-time marker the first
// time it is called, or if t precedes the current marker.
func (b *Block) touchEarliestTime(t timestamp.Timestamp) {
	if !b.haveEarliestTime || t.Less(b.earliestTime) {
		b.earliestTime = t
		b.haveEarliestTime = true
	}
}

// AddIPAddress interns an address (its raw bytes) and returns its 0-based
// index in the ip_address table.
func (b *Block) AddIPAddress(addr []byte) int {
	return b.ipAddress.Add(string(addr))
}

// AddClassType interns a (type, class) pair and returns its 0-based index.
func (b *Block) AddClassType(ct ClassType) int {
	return b.classType.Add(ct)
}

// AddNameOrRdata interns a wire-format domain name or rdata blob and
// returns its 0-based index in the shared name_rdata table.
func (b *Block) AddNameOrRdata(raw []byte) int {
	return b.nameRdata.Add(string(raw))
}

// AddQuerySignature interns a query/response signature and returns its
// 0-based index.
func (b *Block) AddQuerySignature(sig QuerySignature) int {
	return b.querySig.Add(sig)
}

// AddQuestionRecord interns a single question entry and returns its 0-based
// index in the qrr table.
func (b *Block) AddQuestionRecord(q QuestionRecord) int {
	return b.qrr.Add(q)
}

// AddRR interns a single resource-record entry and returns its 0-based
// index in the rr table.
func (b *Block) AddRR(r RRRecord) int {
	return b.rr.Add(r)
}

// AddGenericQlist interns an ordered list of qrr indices and returns its
// 0-based index in the qlist table.
func (b *Block) AddGenericQlist(indices []int) int {
	return b.qlist.Add(RecordList{Indices: indices})
}

// AddGenericRRList interns an ordered list of rr indices and returns its
// 0-based index in the rrlist table.
func (b *Block) AddGenericRRList(indices []int) int {
	return b.rrlist.Add(RecordList{Indices: indices})
}

// AddMalformedMessageData interns a malformed message's shared data tuple
// and returns its 0-based index.
func (b *Block) AddMalformedMessageData(m MalformedMessageData) int {
	return b.malformedData.Add(m)
}

// AddQueryResponse buffers one generic query/response event. It returns
// nothing and never rejects an event based on capacity; callers check
// IsFull to decide when the block must be flushed.
func (b *Block) AddQueryResponse(qr QueryResponse) {
	b.touchEarliestTime(qr.Time)
	b.queryResponses = append(b.queryResponses, qr)
	b.processedMessages++
	b.qrDataItems++
}

// AddMalformedMessage buffers one generic malformed-message event.
func (b *Block) AddMalformedMessage(mm MalformedMessage) {
	b.touchEarliestTime(mm.Time)
	b.malformedMessages = append(b.malformedMessages, mm)
	b.processedMessages++
	b.malformedItems++
}

// AddAddressEventCount records one address-event observation, coalescing
// it into an existing entry with the same (code, transport flags, address
// index) identity by incrementing Count, per §3/§7.
func (b *Block) AddAddressEventCount(code, transportFlags uint8, addressIndex int, hasAddressIndex bool, count uint64) {
	identity := addressEventCountIdentity(AddressEventCount{
		Code:            code,
		TransportFlags:  transportFlags,
		AddressIndex:    addressIndex,
		HasAddressIndex: hasAddressIndex,
	})

	if pos, ok := b.aecIndex[identity]; ok {
		b.addressEventCounts[pos].Count += count
		return
	}

	b.aecIndex[identity] = len(b.addressEventCounts)
	b.addressEventCounts = append(b.addressEventCounts, AddressEventCount{
		Code:            code,
		TransportFlags:  transportFlags,
		AddressIndex:    addressIndex,
		HasAddressIndex: hasAddressIndex,
		Count:           count,
	})
}

// NoteUnmatchedQuery increments the block-statistics unmatched-query
// counter.
func (b *Block) NoteUnmatchedQuery() { b.unmatchedQueries++ }

// NoteUnmatchedResponse increments the block-statistics unmatched-response
// counter.
func (b *Block) NoteUnmatchedResponse() { b.unmatchedResponses++ }

// NoteDiscardedOpcode increments the block-statistics discarded-by-opcode
// counter.
func (b *Block) NoteDiscardedOpcode() { b.discardedOpcode++ }

// Clear empties the block's tables and buffers, retaining backing storage
// for reuse, ready to begin the next block.
func (b *Block) Clear() {
	b.ipAddress.Clear()
	b.classType.Clear()
	b.nameRdata.Clear()
	b.querySig.Clear()
	b.qlist.Clear()
	b.qrr.Clear()
	b.rrlist.Clear()
	b.rr.Clear()
	b.malformedData.Clear()

	b.queryResponses = b.queryResponses[:0]
	b.malformedMessages = b.malformedMessages[:0]
	b.addressEventCounts = b.addressEventCounts[:0]

	for k := range b.aecIndex {
		delete(b.aecIndex, k)
	}

	b.haveEarliestTime = false
	b.processedMessages = 0
	b.qrDataItems = 0
	b.unmatchedQueries = 0
	b.unmatchedResponses = 0
	b.discardedOpcode = 0
	b.malformedItems = 0
}

// Write serializes the block (preamble, statistics, tables, and item
// arrays) through e, following the key layout in package wire. It returns
// the number of bytes written for this block, measured from e's cumulative
// counter, so a caller can verify it against the resulting output size.
func (b *Block) Write(e *cbor.Encoder) (int, error) {
	start := e.Written()

	fieldCount := 2 // preamble, statistics always present
	if b.hasTables() {
		fieldCount++
	}
	if len(b.queryResponses) > 0 {
		fieldCount++
	}
	if len(b.addressEventCounts) > 0 {
		fieldCount++
	}
	if len(b.malformedMessages) > 0 {
		fieldCount++
	}

	if err := e.WriteMapStart(fieldCount); err != nil {
		return int(e.Written() - start), err
	}

	if err := b.writePreamble(e); err != nil {
		return int(e.Written() - start), err
	}

	if err := b.writeStatistics(e); err != nil {
		return int(e.Written() - start), err
	}

	if b.hasTables() {
		if err := e.WriteUint64(wire.KeyBlockTables); err != nil {
			return int(e.Written() - start), err
		}

		if err := b.writeTables(e); err != nil {
			return int(e.Written() - start), err
		}
	}

	if len(b.queryResponses) > 0 {
		if err := e.WriteUint64(wire.KeyQueryResponses); err != nil {
			return int(e.Written() - start), err
		}

		if err := b.writeQueryResponses(e); err != nil {
			return int(e.Written() - start), err
		}
	}

	if len(b.addressEventCounts) > 0 {
		if err := e.WriteUint64(wire.KeyAddressEventCounts); err != nil {
			return int(e.Written() - start), err
		}

		if err := b.writeAddressEventCounts(e); err != nil {
			return int(e.Written() - start), err
		}
	}

	if len(b.malformedMessages) > 0 {
		if err := e.WriteUint64(wire.KeyMalformedMessages); err != nil {
			return int(e.Written() - start), err
		}

		if err := b.writeMalformedMessages(e); err != nil {
			return int(e.Written() - start), err
		}
	}

	return int(e.Written() - start), nil
}

func (b *Block) hasTables() bool {
	return b.ipAddress.Len() > 0 || b.classType.Len() > 0 || b.nameRdata.Len() > 0 ||
		b.querySig.Len() > 0 || b.qlist.Len() > 0 || b.qrr.Len() > 0 ||
		b.rrlist.Len() > 0 || b.rr.Len() > 0 || b.malformedData.Len() > 0
}

func (b *Block) writePreamble(e *cbor.Encoder) error {
	fields := 1
	if b.haveEarliestTime {
		fields++
	}

	if err := e.WriteUint64(wire.KeyBlockPreamble); err != nil {
		return err
	}

	if err := e.WriteMapStart(fields); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyBlockParametersIndex); err != nil {
		return err
	}

	if err := e.WriteUint64(uint64(b.blockParametersIndex)); err != nil {
		return err
	}

	if b.haveEarliestTime {
		if err := e.WriteUint64(wire.KeyEarliestTime); err != nil {
			return err
		}

		if err := e.WriteArrayStart(2); err != nil {
			return err
		}

		if err := e.WriteUint64(b.earliestTime.Secs); err != nil {
			return err
		}

		if err := e.WriteUint64(b.earliestTime.Ticks); err != nil {
			return err
		}
	}

	return nil
}

func (b *Block) writeStatistics(e *cbor.Encoder) error {
	type stat struct {
		key   uint64
		value uint64
	}

	stats := []stat{
		{wire.KeyProcessedMessages, b.processedMessages},
		{wire.KeyQRDataItems, b.qrDataItems},
		{wire.KeyUnmatchedQueries, b.unmatchedQueries},
		{wire.KeyUnmatchedResponses, b.unmatchedResponses},
		{wire.KeyDiscardedOpcode, b.discardedOpcode},
		{wire.KeyMalformedItems, b.malformedItems},
	}

	if err := e.WriteUint64(wire.KeyBlockStatistics); err != nil {
		return err
	}

	if err := e.WriteMapStart(len(stats)); err != nil {
		return err
	}

	for _, s := range stats {
		if err := e.WriteUint64(s.key); err != nil {
			return err
		}

		if err := e.WriteUint64(s.value); err != nil {
			return err
		}
	}

	return nil
}

func (b *Block) writeTables(e *cbor.Encoder) error {
	count := 0
	for _, n := range []int{
		b.ipAddress.Len(), b.classType.Len(), b.nameRdata.Len(),
		b.querySig.Len(), b.qlist.Len(), b.qrr.Len(),
		b.rrlist.Len(), b.rr.Len(), b.malformedData.Len(),
	} {
		if n > 0 {
			count++
		}
	}

	if err := e.WriteMapStart(count); err != nil {
		return err
	}

	if b.ipAddress.Len() > 0 {
		if err := e.WriteUint64(wire.KeyIPAddress); err != nil {
			return err
		}

		if err := e.WriteArrayStart(b.ipAddress.Len()); err != nil {
			return err
		}

		for _, addr := range b.ipAddress.Values() {
			if err := e.WriteBytestring([]byte(addr)); err != nil {
				return err
			}
		}
	}

	if b.classType.Len() > 0 {
		if err := e.WriteUint64(wire.KeyClassType); err != nil {
			return err
		}

		if err := e.WriteArrayStart(b.classType.Len()); err != nil {
			return err
		}

		for _, ct := range b.classType.Values() {
			if err := e.WriteMapStart(2); err != nil {
				return err
			}

			if err := e.WriteUint64(wire.KeyTypeID); err != nil {
				return err
			}

			if err := e.WriteUint16(ct.Type); err != nil {
				return err
			}

			if err := e.WriteUint64(wire.KeyClassID); err != nil {
				return err
			}

			if err := e.WriteUint16(ct.Class); err != nil {
				return err
			}
		}
	}

	if b.nameRdata.Len() > 0 {
		if err := e.WriteUint64(wire.KeyNameRdata); err != nil {
			return err
		}

		if err := e.WriteArrayStart(b.nameRdata.Len()); err != nil {
			return err
		}

		for _, raw := range b.nameRdata.Values() {
			if err := e.WriteBytestring([]byte(raw)); err != nil {
				return err
			}
		}
	}

	if b.querySig.Len() > 0 {
		if err := e.WriteUint64(wire.KeyQuerySignature); err != nil {
			return err
		}

		if err := e.WriteArrayStart(b.querySig.Len()); err != nil {
			return err
		}

		for _, sig := range b.querySig.Values() {
			if err := b.writeQuerySignature(e, sig); err != nil {
				return err
			}
		}
	}

	if b.qlist.Len() > 0 {
		if err := e.WriteUint64(wire.KeyQlist); err != nil {
			return err
		}

		if err := e.WriteArrayStart(b.qlist.Len()); err != nil {
			return err
		}

		for _, l := range b.qlist.Values() {
			if err := writeIndexList(e, l.Indices); err != nil {
				return err
			}
		}
	}

	if b.qrr.Len() > 0 {
		if err := e.WriteUint64(wire.KeyQrr); err != nil {
			return err
		}

		if err := e.WriteArrayStart(b.qrr.Len()); err != nil {
			return err
		}

		for _, q := range b.qrr.Values() {
			if err := writeQuestionRecord(e, q); err != nil {
				return err
			}
		}
	}

	if b.rrlist.Len() > 0 {
		if err := e.WriteUint64(wire.KeyRRList); err != nil {
			return err
		}

		if err := e.WriteArrayStart(b.rrlist.Len()); err != nil {
			return err
		}

		for _, l := range b.rrlist.Values() {
			if err := writeIndexList(e, l.Indices); err != nil {
				return err
			}
		}
	}

	if b.rr.Len() > 0 {
		if err := e.WriteUint64(wire.KeyRR); err != nil {
			return err
		}

		if err := e.WriteArrayStart(b.rr.Len()); err != nil {
			return err
		}

		for _, r := range b.rr.Values() {
			if err := writeRRRecord(e, r); err != nil {
				return err
			}
		}
	}

	if b.malformedData.Len() > 0 {
		if err := e.WriteUint64(wire.KeyMalformedMessageData); err != nil {
			return err
		}

		if err := e.WriteArrayStart(b.malformedData.Len()); err != nil {
			return err
		}

		for _, m := range b.malformedData.Values() {
			if err := writeMalformedMessageData(e, m); err != nil {
				return err
			}
		}
	}

	return nil
}

func writeIndexList(e *cbor.Encoder, indices []int) error {
	if err := e.WriteArrayStart(len(indices)); err != nil {
		return err
	}

	for _, idx := range indices {
		if err := e.WriteUint64(WireIndex(idx)); err != nil {
			return err
		}
	}

	return nil
}

func writeQuestionRecord(e *cbor.Encoder, q QuestionRecord) error {
	fields := 1
	if q.HasClassType {
		fields++
	}

	if err := e.WriteMapStart(fields); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyNameIndex); err != nil {
		return err
	}

	if err := e.WriteUint64(WireIndex(q.NameIndex)); err != nil {
		return err
	}

	if q.HasClassType {
		if err := e.WriteUint64(wire.KeyClassTypeIndex); err != nil {
			return err
		}

		if err := e.WriteUint64(WireIndexOptional(q.ClassTypeIndex, q.HasClassType)); err != nil {
			return err
		}
	}

	return nil
}

func writeRRRecord(e *cbor.Encoder, r RRRecord) error {
	fields := 1
	if r.HasClassType {
		fields++
	}
	if r.HasTTL {
		fields++
	}
	if r.HasRdata {
		fields++
	}

	if err := e.WriteMapStart(fields); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyNameIndex); err != nil {
		return err
	}

	if err := e.WriteUint64(WireIndex(r.NameIndex)); err != nil {
		return err
	}

	if r.HasClassType {
		if err := e.WriteUint64(wire.KeyClassTypeIndex); err != nil {
			return err
		}

		if err := e.WriteUint64(WireIndexOptional(r.ClassTypeIndex, r.HasClassType)); err != nil {
			return err
		}
	}

	if r.HasTTL {
		if err := e.WriteUint64(wire.KeyTTL); err != nil {
			return err
		}

		if err := e.WriteUint32(r.TTL); err != nil {
			return err
		}
	}

	if r.HasRdata {
		if err := e.WriteUint64(wire.KeyRdataIndex); err != nil {
			return err
		}

		if err := e.WriteUint64(WireIndexOptional(r.RdataIndex, r.HasRdata)); err != nil {
			return err
		}
	}

	return nil
}

func writeMalformedMessageData(e *cbor.Encoder, m MalformedMessageData) error {
	fields := 0
	for _, has := range []bool{m.HasServerAddress, m.HasServerPort, m.HasTransportFlags, m.HasPayload} {
		if has {
			fields++
		}
	}

	if err := e.WriteMapStart(fields); err != nil {
		return err
	}

	if m.HasServerAddress {
		if err := e.WriteUint64(wire.KeyMMServerAddressIndex); err != nil {
			return err
		}

		if err := e.WriteUint64(WireIndexOptional(m.ServerAddressIndex, m.HasServerAddress)); err != nil {
			return err
		}
	}

	if m.HasServerPort {
		if err := e.WriteUint64(wire.KeyMMServerPort); err != nil {
			return err
		}

		if err := e.WriteUint16(m.ServerPort); err != nil {
			return err
		}
	}

	if m.HasTransportFlags {
		if err := e.WriteUint64(wire.KeyMMTransportFlags); err != nil {
			return err
		}

		if err := e.WriteUint8(m.TransportFlags); err != nil {
			return err
		}
	}

	if m.HasPayload {
		if err := e.WriteUint64(wire.KeyMMPayload); err != nil {
			return err
		}

		if err := e.WriteBytestring(m.Payload); err != nil {
			return err
		}
	}

	return nil
}

func (b *Block) writeQuerySignature(e *cbor.Encoder, s QuerySignature) error {
	fields := 3 // transport flags, qr type, sig flags always present
	for _, has := range []bool{
		s.HasServerAddress, s.HasServerPort, s.HasQueryOpcode, s.HasQueryRcode,
		s.HasQueryClassType, s.HasQueryQDCount, s.HasQueryANCount, s.HasQueryNSCount,
		s.HasQueryARCount, s.HasQueryEDNSVersion, s.HasQueryUDPSize, s.HasQueryOptRdata,
		s.HasResponseRcode,
	} {
		if has {
			fields++
		}
	}
	fields++ // qr_dns_flags always present

	if err := e.WriteMapStart(fields); err != nil {
		return err
	}

	write := func(key uint64, write func() error) error {
		if err := e.WriteUint64(key); err != nil {
			return err
		}

		return write()
	}

	if s.HasServerAddress {
		if err := write(wire.KeyServerAddressIndex, func() error {
			return e.WriteUint64(WireIndexOptional(s.ServerAddressIndex, s.HasServerAddress))
		}); err != nil {
			return err
		}
	}

	if s.HasServerPort {
		if err := write(wire.KeyServerPort, func() error { return e.WriteUint16(s.ServerPort) }); err != nil {
			return err
		}
	}

	if err := write(wire.KeyQRTransportFlags, func() error { return e.WriteUint8(s.QRTransportFlags) }); err != nil {
		return err
	}

	if err := write(wire.KeyQRType, func() error { return e.WriteUint8(s.QRType) }); err != nil {
		return err
	}

	if err := write(wire.KeyQRSigFlags, func() error { return e.WriteUint8(s.QRSigFlags) }); err != nil {
		return err
	}

	if s.HasQueryOpcode {
		if err := write(wire.KeyQueryOpcode, func() error { return e.WriteUint8(s.QueryOpcode) }); err != nil {
			return err
		}
	}

	if err := write(wire.KeyQRDNSFlags, func() error { return e.WriteUint16(s.QRDNSFlags) }); err != nil {
		return err
	}

	if s.HasQueryRcode {
		if err := write(wire.KeyQueryRcode, func() error { return e.WriteUint8(s.QueryRcode) }); err != nil {
			return err
		}
	}

	if s.HasQueryClassType {
		if err := write(wire.KeyQueryClassTypeIndex, func() error {
			return e.WriteUint64(WireIndexOptional(s.QueryClassTypeIndex, s.HasQueryClassType))
		}); err != nil {
			return err
		}
	}

	if s.HasQueryQDCount {
		if err := write(wire.KeyQueryQDCount, func() error { return e.WriteUint16(s.QueryQDCount) }); err != nil {
			return err
		}
	}

	if s.HasQueryANCount {
		if err := write(wire.KeyQueryANCount, func() error { return e.WriteUint16(s.QueryANCount) }); err != nil {
			return err
		}
	}

	if s.HasQueryNSCount {
		if err := write(wire.KeyQueryNSCount, func() error { return e.WriteUint16(s.QueryNSCount) }); err != nil {
			return err
		}
	}

	if s.HasQueryARCount {
		if err := write(wire.KeyQueryARCount, func() error { return e.WriteUint16(s.QueryARCount) }); err != nil {
			return err
		}
	}

	if s.HasQueryEDNSVersion {
		if err := write(wire.KeyQueryEDNSVersion, func() error { return e.WriteUint8(s.QueryEDNSVersion) }); err != nil {
			return err
		}
	}

	if s.HasQueryUDPSize {
		if err := write(wire.KeyQueryUDPSize, func() error { return e.WriteUint16(s.QueryUDPSize) }); err != nil {
			return err
		}
	}

	if s.HasQueryOptRdata {
		if err := write(wire.KeyQueryOptRdataIndex, func() error {
			return e.WriteUint64(WireIndexOptional(s.QueryOptRdataIndex, s.HasQueryOptRdata))
		}); err != nil {
			return err
		}
	}

	if s.HasResponseRcode {
		if err := write(wire.KeyResponseRcode, func() error { return e.WriteUint8(s.ResponseRcode) }); err != nil {
			return err
		}
	}

	return nil
}

func (b *Block) writeQueryResponses(e *cbor.Encoder) error {
	if err := e.WriteArrayStart(len(b.queryResponses)); err != nil {
		return err
	}

	for _, qr := range b.queryResponses {
		offset := qr.Time.GetTimeOffset(b.earliestTime, b.ticksPerSecond)
		if err := writeQueryResponse(e, qr, offset); err != nil {
			return err
		}
	}

	return nil
}

func writeQueryResponse(e *cbor.Encoder, qr QueryResponse, timeOffset int64) error {
	fields := 1 // time offset always present
	for _, has := range []bool{
		qr.HasClientAddress, qr.HasClientPort, qr.HasTransactionID, qr.HasQRSignature,
		qr.HasClientHoplimit, qr.HasResponseDelay, qr.HasQueryName, qr.HasQuerySize,
		qr.HasResponseSize, qr.HasResponseProcessing, qr.HasQueryExtended,
		qr.HasResponseExtended, qr.HasASN, qr.HasCountryCode, qr.HasRoundTripTime,
	} {
		if has {
			fields++
		}
	}

	if err := e.WriteMapStart(fields); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyTimeOffset); err != nil {
		return err
	}

	if err := e.WriteInt64(timeOffset); err != nil {
		return err
	}

	write := func(key uint64, fn func() error) error {
		if err := e.WriteUint64(key); err != nil {
			return err
		}

		return fn()
	}

	if qr.HasClientAddress {
		if err := write(wire.KeyClientAddressIndex, func() error {
			return e.WriteUint64(WireIndexOptional(qr.ClientAddressIndex, qr.HasClientAddress))
		}); err != nil {
			return err
		}
	}

	if qr.HasClientPort {
		if err := write(wire.KeyClientPort, func() error { return e.WriteUint16(qr.ClientPort) }); err != nil {
			return err
		}
	}

	if qr.HasTransactionID {
		if err := write(wire.KeyTransactionID, func() error { return e.WriteUint16(qr.TransactionID) }); err != nil {
			return err
		}
	}

	if qr.HasQRSignature {
		if err := write(wire.KeyQRSignatureIndex, func() error {
			return e.WriteUint64(WireIndexOptional(qr.QRSignatureIndex, qr.HasQRSignature))
		}); err != nil {
			return err
		}
	}

	if qr.HasClientHoplimit {
		if err := write(wire.KeyClientHoplimit, func() error { return e.WriteUint8(qr.ClientHoplimit) }); err != nil {
			return err
		}
	}

	if qr.HasResponseDelay {
		if err := write(wire.KeyResponseDelay, func() error { return e.WriteInt64(qr.ResponseDelay) }); err != nil {
			return err
		}
	}

	if qr.HasQueryName {
		if err := write(wire.KeyQueryNameIndex, func() error {
			return e.WriteUint64(WireIndexOptional(qr.QueryNameIndex, qr.HasQueryName))
		}); err != nil {
			return err
		}
	}

	if qr.HasQuerySize {
		if err := write(wire.KeyQuerySize, func() error { return e.WriteUint32(qr.QuerySize) }); err != nil {
			return err
		}
	}

	if qr.HasResponseSize {
		if err := write(wire.KeyResponseSize, func() error { return e.WriteUint32(qr.ResponseSize) }); err != nil {
			return err
		}
	}

	if qr.HasResponseProcessing {
		if err := e.WriteUint64(wire.KeyResponseProcessingData); err != nil {
			return err
		}

		if err := writeResponseProcessingData(e, qr.ResponseProcessing); err != nil {
			return err
		}
	}

	if qr.HasQueryExtended {
		if err := e.WriteUint64(wire.KeyQueryExtended); err != nil {
			return err
		}

		if err := writeQueryResponseExtended(e, qr.QueryExtended); err != nil {
			return err
		}
	}

	if qr.HasResponseExtended {
		if err := e.WriteUint64(wire.KeyResponseExtended); err != nil {
			return err
		}

		if err := writeQueryResponseExtended(e, qr.ResponseExtended); err != nil {
			return err
		}
	}

	if qr.HasASN {
		if err := write(wire.KeyASN, func() error { return e.WriteUint32(qr.ASN) }); err != nil {
			return err
		}
	}

	if qr.HasCountryCode {
		if err := write(wire.KeyCountryCode, func() error { return e.WriteTextstring(qr.CountryCode) }); err != nil {
			return err
		}
	}

	if qr.HasRoundTripTime {
		if err := write(wire.KeyRoundTripTime, func() error { return e.WriteInt64(qr.RoundTripTime) }); err != nil {
			return err
		}
	}

	return nil
}

func writeResponseProcessingData(e *cbor.Encoder, r ResponseProcessingData) error {
	fields := 0
	if r.HasBailiwick {
		fields++
	}
	if r.HasProcessing {
		fields++
	}

	if err := e.WriteMapStart(fields); err != nil {
		return err
	}

	if r.HasBailiwick {
		if err := e.WriteUint64(wire.KeyBailiwickIndex); err != nil {
			return err
		}

		if err := e.WriteUint64(WireIndexOptional(r.BailiwickIndex, r.HasBailiwick)); err != nil {
			return err
		}
	}

	if r.HasProcessing {
		if err := e.WriteUint64(wire.KeyProcessingFlags); err != nil {
			return err
		}

		if err := e.WriteUint8(r.ProcessingFlags); err != nil {
			return err
		}
	}

	return nil
}

func writeQueryResponseExtended(e *cbor.Encoder, x QueryResponseExtended) error {
	fields := 0
	for _, has := range []bool{x.HasQuestion, x.HasAnswer, x.HasAuthority, x.HasAdditional} {
		if has {
			fields++
		}
	}

	if err := e.WriteMapStart(fields); err != nil {
		return err
	}

	if x.HasQuestion {
		if err := e.WriteUint64(wire.KeyQuestionIndex); err != nil {
			return err
		}

		if err := e.WriteUint64(WireIndexOptional(x.QuestionIndex, x.HasQuestion)); err != nil {
			return err
		}
	}

	if x.HasAnswer {
		if err := e.WriteUint64(wire.KeyAnswerIndex); err != nil {
			return err
		}

		if err := e.WriteUint64(WireIndexOptional(x.AnswerIndex, x.HasAnswer)); err != nil {
			return err
		}
	}

	if x.HasAuthority {
		if err := e.WriteUint64(wire.KeyAuthorityIndex); err != nil {
			return err
		}

		if err := e.WriteUint64(WireIndexOptional(x.AuthorityIndex, x.HasAuthority)); err != nil {
			return err
		}
	}

	if x.HasAdditional {
		if err := e.WriteUint64(wire.KeyAdditionalIndex); err != nil {
			return err
		}

		if err := e.WriteUint64(WireIndexOptional(x.AdditionalIndex, x.HasAdditional)); err != nil {
			return err
		}
	}

	return nil
}

func (b *Block) writeAddressEventCounts(e *cbor.Encoder) error {
	if err := e.WriteArrayStart(len(b.addressEventCounts)); err != nil {
		return err
	}

	for _, aec := range b.addressEventCounts {
		fields := 3
		if aec.HasAddressIndex {
			fields++
		}

		if err := e.WriteMapStart(fields); err != nil {
			return err
		}

		if err := e.WriteUint64(wire.KeyAECode); err != nil {
			return err
		}

		if err := e.WriteUint8(aec.Code); err != nil {
			return err
		}

		if err := e.WriteUint64(wire.KeyAETransportFlags); err != nil {
			return err
		}

		if err := e.WriteUint8(aec.TransportFlags); err != nil {
			return err
		}

		if aec.HasAddressIndex {
			if err := e.WriteUint64(wire.KeyAEAddressIndex); err != nil {
				return err
			}

			if err := e.WriteUint64(WireIndexOptional(aec.AddressIndex, aec.HasAddressIndex)); err != nil {
				return err
			}
		}

		if err := e.WriteUint64(wire.KeyAECount); err != nil {
			return err
		}

		if err := e.WriteUint64(aec.Count); err != nil {
			return err
		}
	}

	return nil
}

func (b *Block) writeMalformedMessages(e *cbor.Encoder) error {
	if err := e.WriteArrayStart(len(b.malformedMessages)); err != nil {
		return err
	}

	for _, mm := range b.malformedMessages {
		fields := 1
		for _, has := range []bool{mm.HasMessageData, mm.HasClientAddress, mm.HasClientPort} {
			if has {
				fields++
			}
		}

		if err := e.WriteMapStart(fields); err != nil {
			return err
		}

		if err := e.WriteUint64(wire.KeyTimeOffset); err != nil {
			return err
		}

		offset := mm.Time.GetTimeOffset(b.earliestTime, b.ticksPerSecond)
		if err := e.WriteInt64(offset); err != nil {
			return err
		}

		if mm.HasClientAddress {
			if err := e.WriteUint64(wire.KeyClientAddressIndex); err != nil {
				return err
			}

			if err := e.WriteUint64(WireIndexOptional(mm.ClientAddressIndex, mm.HasClientAddress)); err != nil {
				return err
			}
		}

		if mm.HasClientPort {
			if err := e.WriteUint64(wire.KeyClientPort); err != nil {
				return err
			}

			if err := e.WriteUint16(mm.ClientPort); err != nil {
				return err
			}
		}

		if mm.HasMessageData {
			if err := e.WriteUint64(wire.KeyMessageDataIndex); err != nil {
				return err
			}

			if err := e.WriteUint64(WireIndexOptional(mm.MessageDataIndex, mm.HasMessageData)); err != nil {
				return err
			}
		}
	}

	return nil
}
