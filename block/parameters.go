package block

import (
	"reflect"
	"strconv"

	"github.com/CZ-NIC/go-cdns/wire"
)

// StorageHints records which optional field groups a producer promises to
// populate, so a reader can distinguish "never collected" from "collected,
// absent for this event". Each field is a bitmask; the zero value of a
// bitmask means "no optional fields in this group are populated".
type StorageHints struct {
	QueryResponseHints          uint32
	QueryResponseSignatureHints uint32
	RRHints                     uint32
	OtherDataHints              uint32
}

// DefaultStorageHints returns the hints set used when a producer does not
// narrow which optional fields it populates: everything currently defined.
func DefaultStorageHints() StorageHints {
	return StorageHints{
		QueryResponseHints:          wire.DefaultQueryResponseHints,
		QueryResponseSignatureHints: wire.DefaultQueryResponseSignatureHints,
		RRHints:                     wire.DefaultRRHints,
		OtherDataHints:              wire.DefaultOtherDataHints,
	}
}

// CollectionParameters records how the capture that produced this file was
// configured. All fields are optional; a zero-value CollectionParameters
// documents nothing about the capture.
type CollectionParameters struct {
	QueryTimeout    uint32
	HasQueryTimeout bool
	SkewTimeout     uint32
	HasSkewTimeout  bool
	Snaplen         uint32
	HasSnaplen      bool
	Promisc         bool
	HasPromisc      bool
	Interfaces      []string
	ServerAddresses [][]byte
	VlanIDs         []uint32
	Filter          string
	HasFilter       bool
	GeneratorID     string
	HasGeneratorID  bool
	HostID          string
	HasHostID       bool
}

// StorageParameters describes how every block governed by it encodes its
// fields: timing resolution, block-size cap, which optional fields are
// populated, and which DNS opcodes/RR types are in scope.
type StorageParameters struct {
	TicksPerSecond        uint64
	MaxBlockItems         uint32
	StorageHints          StorageHints
	Opcodes               []uint16
	RRTypes               []uint16
	StorageFlags          uint8
	HasStorageFlags       bool
	ClientAddressPrefixV4 uint8
	HasClientAddressPrefixV4 bool
	ClientAddressPrefixV6 uint8
	HasClientAddressPrefixV6 bool
	ServerAddressPrefixV4 uint8
	HasServerAddressPrefixV4 bool
	ServerAddressPrefixV6 uint8
	HasServerAddressPrefixV6 bool
	SamplingMethod        string
	HasSamplingMethod     bool
	AnonymizationMethod   string
	HasAnonymizationMethod bool
}

// DefaultStorageParameters returns the conventional defaults from RFC 8618:
// microsecond ticks, 10000 items per block, every optional field populated,
// and the standard opcode/RR-type allow-lists.
func DefaultStorageParameters() StorageParameters {
	return StorageParameters{
		TicksPerSecond: wire.DefaultTicksPerSecond,
		MaxBlockItems:  wire.DefaultMaxBlockItems,
		StorageHints:   DefaultStorageHints(),
		Opcodes:        append([]uint16(nil), wire.DefaultOpCodes...),
		RRTypes:        append([]uint16(nil), wire.DefaultRRTypes...),
	}
}

// BlockParameters bundles one StorageParameters with an optional
// CollectionParameters. A file may declare several BlockParameters entries;
// each block references the one it was produced under by index.
type BlockParameters struct {
	Storage              StorageParameters
	Collection           CollectionParameters
	HasCollection        bool
}

// FilePreamble is the C-DNS file header: format version plus the list of
// BlockParameters entries blocks in the file may reference.
type FilePreamble struct {
	MajorVersion    uint64
	MinorVersion    uint64
	PrivateVersion  uint64
	BlockParameters []BlockParameters
}

// NewFilePreamble returns a preamble at this implementation's format
// version with a single default BlockParameters entry.
func NewFilePreamble() FilePreamble {
	return FilePreamble{
		MajorVersion:   wire.VersionMajor,
		MinorVersion:   wire.VersionMinor,
		PrivateVersion: wire.VersionPrivate,
		BlockParameters: []BlockParameters{
			{Storage: DefaultStorageParameters()},
		},
	}
}

// AddBlockParameters appends bp to the preamble's list, returning its
// 0-based index for use as a block's block_parameters_index.
func (p *FilePreamble) AddBlockParameters(bp BlockParameters) int {
	p.BlockParameters = append(p.BlockParameters, bp)
	return len(p.BlockParameters) - 1
}

// BlockParametersSize returns the number of BlockParameters entries
// currently declared by the preamble.
func (p *FilePreamble) BlockParametersSize() int {
	return len(p.BlockParameters)
}

// Find returns the 0-based index of a BlockParameters entry equal to bp, if
// one is already declared, mirroring the table-dedup pattern used for
// block-local content but applied at file scope.
func (p *FilePreamble) Find(bp BlockParameters) (index int, ok bool) {
	for i, existing := range p.BlockParameters {
		if blockParametersEqual(existing, bp) {
			return i, true
		}
	}

	return 0, false
}

func blockParametersEqual(a, b BlockParameters) bool {
	return storageParametersKey(a.Storage) == storageParametersKey(b.Storage) &&
		reflect.DeepEqual(a, b)
}

func storageParametersKey(s StorageParameters) string {
	b := make([]byte, 0, 48)
	b = strconv.AppendUint(b, s.TicksPerSecond, 36)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(s.MaxBlockItems), 36)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(s.StorageHints.QueryResponseHints), 36)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(s.StorageHints.QueryResponseSignatureHints), 36)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(s.StorageHints.RRHints), 36)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(s.StorageHints.OtherDataHints), 36)

	for _, op := range s.Opcodes {
		b = append(b, ',')
		b = strconv.AppendUint(b, uint64(op), 36)
	}

	return string(b)
}
