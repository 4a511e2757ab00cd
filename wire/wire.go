// Package wire holds the RFC 8618 on-wire constants: format version numbers,
// the file-type tag, and the small-integer CBOR map keys used by every
// structure the block codec serializes. Keeping these in one package means
// the encoder and decoder (in package cbor/block) never hardcode a magic
// number inline — they all reference wire.KeyXxx.
package wire

// Format version, fixed by this implementation.
const (
	VersionMajor   uint64 = 1
	VersionMinor   uint64 = 0
	VersionPrivate uint64 = 0
)

// FileTypeTag is the CBOR tag written immediately after the file-level
// indefinite array start, identifying the stream as a C-DNS file.
const FileTypeTag uint64 = 55799

// Defaults for StorageParameters, per RFC 8618.
const (
	DefaultTicksPerSecond uint64 = 1_000_000
	DefaultMaxBlockItems  uint32 = 10_000
)

// Default storage-hints bitmasks: every currently-defined optional field is
// recorded unless the caller opts out.
const (
	DefaultQueryResponseHints          uint32 = 0xFFFFFFFF
	DefaultQueryResponseSignatureHints uint32 = 0xFFFFFFFF
	DefaultRRHints                     uint32 = 0xFFFFFFFF
	DefaultOtherDataHints              uint32 = 0xFFFFFFFF
)

// DefaultOpCodes and DefaultRRTypes are the standard lists StorageParameters
// falls back to when the caller does not narrow them. Values are the DNS
// opcode / RR type registry values most C-DNS captures care about.
var (
	DefaultOpCodes = []uint16{0, 1, 2, 4, 5} // Query, IQuery, Status, Notify, Update
	DefaultRRTypes = []uint16{
		1, 2, 5, 6, 12, 15, 16, 28, 33, 41, 43, 46, 47, 48, 50, 51, 52, 255,
	}
)

// File-preamble map keys.
const (
	KeyMajorFormatVersion uint64 = 0
	KeyMinorFormatVersion uint64 = 1
	KeyPrivateVersion     uint64 = 2
	KeyBlockParameters    uint64 = 3
)

// BlockParameters map keys.
const (
	KeyStorageParameters    uint64 = 0
	KeyCollectionParameters uint64 = 1
)

// StorageParameters map keys.
const (
	KeyTicksPerSecond         uint64 = 0
	KeyMaxBlockItems          uint64 = 1
	KeyStorageHints           uint64 = 2
	KeyOpcodes                uint64 = 3
	KeyRRTypes                uint64 = 4
	KeyStorageFlags           uint64 = 5
	KeyClientAddressPrefixV4  uint64 = 6
	KeyClientAddressPrefixV6  uint64 = 7
	KeyServerAddressPrefixV4  uint64 = 8
	KeyServerAddressPrefixV6  uint64 = 9
	KeySamplingMethod         uint64 = 10
	KeyAnonymizationMethod    uint64 = 11
)

// StorageHints map keys.
const (
	KeyQueryResponseHints          uint64 = 0
	KeyQueryResponseSignatureHints uint64 = 1
	KeyRRHints                     uint64 = 2
	KeyOtherDataHints              uint64 = 3
)

// CollectionParameters map keys.
const (
	KeyQueryTimeout   uint64 = 0
	KeySkewTimeout    uint64 = 1
	KeySnaplen        uint64 = 2
	KeyPromisc        uint64 = 3
	KeyInterfaces     uint64 = 4
	KeyServerAddress  uint64 = 5
	KeyVlanIds        uint64 = 6
	KeyFilter         uint64 = 7
	KeyGeneratorID    uint64 = 8
	KeyHostID         uint64 = 9
)

// Block map keys.
const (
	KeyBlockPreamble        uint64 = 0
	KeyBlockStatistics      uint64 = 1
	KeyBlockTables          uint64 = 2
	KeyQueryResponses       uint64 = 3
	KeyAddressEventCounts   uint64 = 4
	KeyMalformedMessages    uint64 = 5
)

// BlockPreamble map keys.
const (
	KeyEarliestTime        uint64 = 0
	KeyBlockParametersIndex uint64 = 1
)

// BlockStatistics map keys.
const (
	KeyProcessedMessages  uint64 = 0
	KeyQRDataItems        uint64 = 1
	KeyUnmatchedQueries   uint64 = 2
	KeyUnmatchedResponses uint64 = 3
	KeyDiscardedOpcode    uint64 = 4
	KeyMalformedItems     uint64 = 5
)

// BlockTables map keys.
const (
	KeyIPAddress           uint64 = 0
	KeyClassType           uint64 = 1
	KeyNameRdata           uint64 = 2
	KeyQuerySignature      uint64 = 3
	KeyQlist               uint64 = 4
	KeyQrr                 uint64 = 5
	KeyRRList              uint64 = 6
	KeyRR                  uint64 = 7
	KeyMalformedMessageData uint64 = 8
)

// ClassType map keys.
const (
	KeyTypeID  uint64 = 0
	KeyClassID uint64 = 1
)

// QueryResponseSignature map keys.
const (
	KeyServerAddressIndex uint64 = 0
	KeyServerPort         uint64 = 1
	KeyQRTransportFlags   uint64 = 2
	KeyQRType             uint64 = 3
	KeyQRSigFlags         uint64 = 4
	KeyQueryOpcode        uint64 = 5
	KeyQRDNSFlags         uint64 = 6
	KeyQueryRcode         uint64 = 7
	KeyQueryClassTypeIndex uint64 = 8
	KeyQueryQDCount       uint64 = 9
	KeyQueryANCount       uint64 = 10
	KeyQueryNSCount       uint64 = 11
	KeyQueryARCount       uint64 = 12
	KeyQueryEDNSVersion   uint64 = 13
	KeyQueryUDPSize       uint64 = 14
	KeyQueryOptRdataIndex uint64 = 15
	KeyResponseRcode      uint64 = 16
)

// Question map keys.
const (
	KeyNameIndex      uint64 = 0
	KeyClassTypeIndex uint64 = 1
)

// RR map keys (name-index, classtype-index shared with Question; ttl/rdata added).
const (
	KeyTTL        uint64 = 2
	KeyRdataIndex uint64 = 3
)

// MalformedMessageData map keys.
const (
	KeyMMServerAddressIndex uint64 = 0
	KeyMMServerPort         uint64 = 1
	KeyMMTransportFlags     uint64 = 2
	KeyMMPayload            uint64 = 3
)

// QueryResponse map keys.
const (
	KeyTimeOffset              uint64 = 0
	KeyClientAddressIndex      uint64 = 1
	KeyClientPort              uint64 = 2
	KeyTransactionID           uint64 = 3
	KeyQRSignatureIndex        uint64 = 4
	KeyClientHoplimit          uint64 = 5
	KeyResponseDelay           uint64 = 6
	KeyQueryNameIndex          uint64 = 7
	KeyQuerySize               uint64 = 8
	KeyResponseSize            uint64 = 9
	KeyResponseProcessingData  uint64 = 10
	KeyQueryExtended           uint64 = 11
	KeyResponseExtended        uint64 = 12
	KeyASN                     uint64 = 13
	KeyCountryCode             uint64 = 14
	KeyRoundTripTime           uint64 = 15
)

// ResponseProcessingData map keys.
const (
	KeyBailiwickIndex   uint64 = 0
	KeyProcessingFlags  uint64 = 1
)

// QueryResponseExtended map keys.
const (
	KeyQuestionIndex  uint64 = 0
	KeyAnswerIndex    uint64 = 1
	KeyAuthorityIndex uint64 = 2
	KeyAdditionalIndex uint64 = 3
)

// AddressEventCount map keys.
const (
	KeyAECode           uint64 = 0
	KeyAETransportFlags uint64 = 1
	KeyAEAddressIndex   uint64 = 2
	KeyAECount          uint64 = 3
)

// MalformedMessage map keys (time-offset/client-address-index/client-port
// shared numbering with QueryResponse; message-data-index added).
const (
	KeyMessageDataIndex uint64 = 3
)
