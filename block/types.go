package block

import (
	"strconv"

	"github.com/CZ-NIC/go-cdns/timestamp"
)

// ClassType is the (RR type, RR class) pair stored in the classtype table.
type ClassType struct {
	Type  uint16
	Class uint16
}

func classTypeKey(c ClassType) string {
	return strconv.FormatUint(uint64(c.Type), 36) + ":" + strconv.FormatUint(uint64(c.Class), 36)
}

// QuerySignature is the per-(query,response)-pair signature stored in the
// qr-signature table: everything about a pair that is likely to repeat
// across many pairs, factored out so only an index is stored per pair.
type QuerySignature struct {
	ServerAddressIndex int
	HasServerAddress   bool
	ServerPort         uint16
	HasServerPort      bool
	QRTransportFlags   uint8
	QRType             uint8
	QRSigFlags         uint8
	QueryOpcode        uint8
	HasQueryOpcode     bool
	QRDNSFlags         uint16
	QueryRcode         uint8
	HasQueryRcode      bool
	QueryClassTypeIndex int
	HasQueryClassType   bool
	QueryQDCount       uint16
	HasQueryQDCount    bool
	QueryANCount       uint16
	HasQueryANCount    bool
	QueryNSCount       uint16
	HasQueryNSCount    bool
	QueryARCount       uint16
	HasQueryARCount    bool
	QueryEDNSVersion   uint8
	HasQueryEDNSVersion bool
	QueryUDPSize       uint16
	HasQueryUDPSize    bool
	QueryOptRdataIndex int
	HasQueryOptRdata   bool
	ResponseRcode      uint8
	HasResponseRcode   bool
}

func querySignatureKey(s QuerySignature) string {
	b := make([]byte, 0, 64)
	app := func(present bool, v uint64) {
		if present {
			b = append(b, 1)
			b = strconv.AppendUint(b, v, 36)
		}
		b = append(b, '|')
	}
	app(s.HasServerAddress, uint64(s.ServerAddressIndex))
	app(s.HasServerPort, uint64(s.ServerPort))
	app(true, uint64(s.QRTransportFlags))
	app(true, uint64(s.QRType))
	app(true, uint64(s.QRSigFlags))
	app(s.HasQueryOpcode, uint64(s.QueryOpcode))
	app(true, uint64(s.QRDNSFlags))
	app(s.HasQueryRcode, uint64(s.QueryRcode))
	app(s.HasQueryClassType, uint64(s.QueryClassTypeIndex))
	app(s.HasQueryQDCount, uint64(s.QueryQDCount))
	app(s.HasQueryANCount, uint64(s.QueryANCount))
	app(s.HasQueryNSCount, uint64(s.QueryNSCount))
	app(s.HasQueryARCount, uint64(s.QueryARCount))
	app(s.HasQueryEDNSVersion, uint64(s.QueryEDNSVersion))
	app(s.HasQueryUDPSize, uint64(s.QueryUDPSize))
	app(s.HasQueryOptRdata, uint64(s.QueryOptRdataIndex))
	app(s.HasResponseRcode, uint64(s.ResponseRcode))

	return string(b)
}

// QuestionRecord is a single (name-index, classtype-index) entry shared by
// the qlist/qrr table and by an RR's name+classtype prefix.
type QuestionRecord struct {
	NameIndex      int
	ClassTypeIndex int
	HasClassType   bool
}

func questionRecordKey(q QuestionRecord) string {
	return strconv.Itoa(q.NameIndex) + ":" + strconv.FormatBool(q.HasClassType) + ":" + strconv.Itoa(q.ClassTypeIndex)
}

// RRRecord is a single resource-record entry in the rr table: a question
// prefix plus TTL and rdata.
type RRRecord struct {
	NameIndex      int
	ClassTypeIndex int
	HasClassType   bool
	TTL            uint32
	HasTTL         bool
	RdataIndex     int
	HasRdata       bool
}

func rrRecordKey(r RRRecord) string {
	b := make([]byte, 0, 32)
	b = strconv.AppendInt(b, int64(r.NameIndex), 36)
	b = append(b, ':')
	b = strconv.AppendBool(b, r.HasClassType)
	b = append(b, ':')
	b = strconv.AppendInt(b, int64(r.ClassTypeIndex), 36)
	b = append(b, ':')
	b = strconv.AppendBool(b, r.HasTTL)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(r.TTL), 36)
	b = append(b, ':')
	b = strconv.AppendBool(b, r.HasRdata)
	b = append(b, ':')
	b = strconv.AppendInt(b, int64(r.RdataIndex), 36)

	return string(b)
}

// RecordList is an ordered list of 0-based indices into the qrr or rr
// table, stored once in the qlist/rrlist table and referenced by index from
// QueryResponseExtended.
type RecordList struct {
	Indices []int
}

func recordListKey(l RecordList) string {
	b := make([]byte, 0, len(l.Indices)*4)
	for _, idx := range l.Indices {
		b = strconv.AppendInt(b, int64(idx), 36)
		b = append(b, ',')
	}

	return string(b)
}

// MalformedMessageData is the shared (server address/port/transport-flags,
// payload) tuple for malformed messages, stored once in the
// malformed-message-data table.
type MalformedMessageData struct {
	ServerAddressIndex int
	HasServerAddress   bool
	ServerPort         uint16
	HasServerPort      bool
	TransportFlags     uint8
	HasTransportFlags  bool
	Payload            []byte
	HasPayload         bool
}

func malformedMessageDataKey(m MalformedMessageData) string {
	b := make([]byte, 0, 32+len(m.Payload))
	b = strconv.AppendBool(b, m.HasServerAddress)
	b = append(b, ':')
	b = strconv.AppendInt(b, int64(m.ServerAddressIndex), 36)
	b = append(b, ':')
	b = strconv.AppendBool(b, m.HasServerPort)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(m.ServerPort), 36)
	b = append(b, ':')
	b = strconv.AppendBool(b, m.HasTransportFlags)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(m.TransportFlags), 36)
	b = append(b, ':')
	b = strconv.AppendBool(b, m.HasPayload)
	b = append(b, ':')
	b = append(b, m.Payload...)

	return string(b)
}

// QueryResponseExtended is the optional (question/answer/authority/
// additional RR-list index) block attached to a query or response side of
// a QueryResponse.
type QueryResponseExtended struct {
	QuestionIndex   int
	HasQuestion     bool
	AnswerIndex     int
	HasAnswer       bool
	AuthorityIndex  int
	HasAuthority    bool
	AdditionalIndex int
	HasAdditional   bool
}

// ResponseProcessingData records bailiwick and processing-flag information
// for a response.
type ResponseProcessingData struct {
	BailiwickIndex  int
	HasBailiwick    bool
	ProcessingFlags uint8
	HasProcessing   bool
}

// QueryResponse is one generic query/response event as buffered by the
// exporter before being serialized into a block's arrays. Every optional
// field carries its own Has* flag per §3's "every field optional" model.
type QueryResponse struct {
	Time                  timestamp.Timestamp
	ClientAddressIndex    int
	HasClientAddress      bool
	ClientPort            uint16
	HasClientPort         bool
	TransactionID         uint16
	HasTransactionID      bool
	QRSignatureIndex      int
	HasQRSignature        bool
	ClientHoplimit        uint8
	HasClientHoplimit     bool
	ResponseDelay         int64
	HasResponseDelay      bool
	QueryNameIndex        int
	HasQueryName          bool
	QuerySize             uint32
	HasQuerySize          bool
	ResponseSize          uint32
	HasResponseSize       bool
	ResponseProcessing    ResponseProcessingData
	HasResponseProcessing bool
	QueryExtended         QueryResponseExtended
	HasQueryExtended      bool
	ResponseExtended      QueryResponseExtended
	HasResponseExtended   bool
	ASN                   uint32
	HasASN                bool
	CountryCode           string
	HasCountryCode        bool
	RoundTripTime         int64
	HasRoundTripTime      bool
}

// MalformedMessage is one generic malformed-message event.
type MalformedMessage struct {
	Time                timestamp.Timestamp
	MessageDataIndex    int
	HasMessageData      bool
	ClientAddressIndex  int
	HasClientAddress    bool
	ClientPort          uint16
	HasClientPort       bool
}

// AddressEventCount is one generic address-event observation. Entries with
// the same (Code, TransportFlags, AddressIndex) identity are coalesced by
// incrementing Count rather than stored as separate entries (§3, §7).
type AddressEventCount struct {
	Code            uint8
	TransportFlags  uint8
	AddressIndex    int
	HasAddressIndex bool
	Count           uint64
}

func addressEventCountIdentity(a AddressEventCount) string {
	b := make([]byte, 0, 24)
	b = strconv.AppendUint(b, uint64(a.Code), 36)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(a.TransportFlags), 36)
	b = append(b, ':')
	b = strconv.AppendBool(b, a.HasAddressIndex)
	b = append(b, ':')
	b = strconv.AppendInt(b, int64(a.AddressIndex), 36)

	return string(b)
}
