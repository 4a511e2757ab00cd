package exporter

import (
	"github.com/CZ-NIC/go-cdns/block"
	"github.com/CZ-NIC/go-cdns/cbor"
	"github.com/CZ-NIC/go-cdns/wire"
)

func writeFilePreamble(e *cbor.Encoder, p block.FilePreamble) error {
	if err := e.WriteMapStart(4); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyMajorFormatVersion); err != nil {
		return err
	}

	if err := e.WriteUint64(p.MajorVersion); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyMinorFormatVersion); err != nil {
		return err
	}

	if err := e.WriteUint64(p.MinorVersion); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyPrivateVersion); err != nil {
		return err
	}

	if err := e.WriteUint64(p.PrivateVersion); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyBlockParameters); err != nil {
		return err
	}

	if err := e.WriteArrayStart(len(p.BlockParameters)); err != nil {
		return err
	}

	for _, bp := range p.BlockParameters {
		if err := writeBlockParameters(e, bp); err != nil {
			return err
		}
	}

	return nil
}

func writeBlockParameters(e *cbor.Encoder, bp block.BlockParameters) error {
	fields := 1
	if bp.HasCollection {
		fields++
	}

	if err := e.WriteMapStart(fields); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyStorageParameters); err != nil {
		return err
	}

	if err := writeStorageParameters(e, bp.Storage); err != nil {
		return err
	}

	if bp.HasCollection {
		if err := e.WriteUint64(wire.KeyCollectionParameters); err != nil {
			return err
		}

		if err := writeCollectionParameters(e, bp.Collection); err != nil {
			return err
		}
	}

	return nil
}

func writeStorageParameters(e *cbor.Encoder, s block.StorageParameters) error {
	fields := 5 // ticks_per_second, max_block_items, storage_hints, opcodes, rr_types always present
	for _, has := range []bool{
		s.HasStorageFlags, s.HasClientAddressPrefixV4, s.HasClientAddressPrefixV6,
		s.HasServerAddressPrefixV4, s.HasServerAddressPrefixV6, s.HasSamplingMethod,
		s.HasAnonymizationMethod,
	} {
		if has {
			fields++
		}
	}

	if err := e.WriteMapStart(fields); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyTicksPerSecond); err != nil {
		return err
	}

	if err := e.WriteUint64(s.TicksPerSecond); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyMaxBlockItems); err != nil {
		return err
	}

	if err := e.WriteUint32(s.MaxBlockItems); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyStorageHints); err != nil {
		return err
	}

	if err := writeStorageHints(e, s.StorageHints); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyOpcodes); err != nil {
		return err
	}

	if err := writeUint16List(e, s.Opcodes); err != nil {
		return err
	}

	if err := e.WriteUint64(wire.KeyRRTypes); err != nil {
		return err
	}

	if err := writeUint16List(e, s.RRTypes); err != nil {
		return err
	}

	if s.HasStorageFlags {
		if err := e.WriteUint64(wire.KeyStorageFlags); err != nil {
			return err
		}

		if err := e.WriteUint8(s.StorageFlags); err != nil {
			return err
		}
	}

	if s.HasClientAddressPrefixV4 {
		if err := e.WriteUint64(wire.KeyClientAddressPrefixV4); err != nil {
			return err
		}

		if err := e.WriteUint8(s.ClientAddressPrefixV4); err != nil {
			return err
		}
	}

	if s.HasClientAddressPrefixV6 {
		if err := e.WriteUint64(wire.KeyClientAddressPrefixV6); err != nil {
			return err
		}

		if err := e.WriteUint8(s.ClientAddressPrefixV6); err != nil {
			return err
		}
	}

	if s.HasServerAddressPrefixV4 {
		if err := e.WriteUint64(wire.KeyServerAddressPrefixV4); err != nil {
			return err
		}

		if err := e.WriteUint8(s.ServerAddressPrefixV4); err != nil {
			return err
		}
	}

	if s.HasServerAddressPrefixV6 {
		if err := e.WriteUint64(wire.KeyServerAddressPrefixV6); err != nil {
			return err
		}

		if err := e.WriteUint8(s.ServerAddressPrefixV6); err != nil {
			return err
		}
	}

	if s.HasSamplingMethod {
		if err := e.WriteUint64(wire.KeySamplingMethod); err != nil {
			return err
		}

		if err := e.WriteTextstring(s.SamplingMethod); err != nil {
			return err
		}
	}

	if s.HasAnonymizationMethod {
		if err := e.WriteUint64(wire.KeyAnonymizationMethod); err != nil {
			return err
		}

		if err := e.WriteTextstring(s.AnonymizationMethod); err != nil {
			return err
		}
	}

	return nil
}

func writeStorageHints(e *cbor.Encoder, h block.StorageHints) error {
	if err := e.WriteMapStart(4); err != nil {
		return err
	}

	pairs := []struct {
		key   uint64
		value uint32
	}{
		{wire.KeyQueryResponseHints, h.QueryResponseHints},
		{wire.KeyQueryResponseSignatureHints, h.QueryResponseSignatureHints},
		{wire.KeyRRHints, h.RRHints},
		{wire.KeyOtherDataHints, h.OtherDataHints},
	}

	for _, p := range pairs {
		if err := e.WriteUint64(p.key); err != nil {
			return err
		}

		if err := e.WriteUint32(p.value); err != nil {
			return err
		}
	}

	return nil
}

func writeUint16List(e *cbor.Encoder, values []uint16) error {
	if err := e.WriteArrayStart(len(values)); err != nil {
		return err
	}

	for _, v := range values {
		if err := e.WriteUint16(v); err != nil {
			return err
		}
	}

	return nil
}

func writeCollectionParameters(e *cbor.Encoder, c block.CollectionParameters) error {
	fields := 0

	if c.HasQueryTimeout {
		fields++
	}
	if c.HasSkewTimeout {
		fields++
	}
	if c.HasSnaplen {
		fields++
	}
	if c.HasPromisc {
		fields++
	}
	if len(c.Interfaces) > 0 {
		fields++
	}
	if len(c.ServerAddresses) > 0 {
		fields++
	}
	if len(c.VlanIDs) > 0 {
		fields++
	}
	if c.HasFilter {
		fields++
	}
	if c.HasGeneratorID {
		fields++
	}
	if c.HasHostID {
		fields++
	}

	if err := e.WriteMapStart(fields); err != nil {
		return err
	}

	if c.HasQueryTimeout {
		if err := e.WriteUint64(wire.KeyQueryTimeout); err != nil {
			return err
		}

		if err := e.WriteUint32(c.QueryTimeout); err != nil {
			return err
		}
	}

	if c.HasSkewTimeout {
		if err := e.WriteUint64(wire.KeySkewTimeout); err != nil {
			return err
		}

		if err := e.WriteUint32(c.SkewTimeout); err != nil {
			return err
		}
	}

	if c.HasSnaplen {
		if err := e.WriteUint64(wire.KeySnaplen); err != nil {
			return err
		}

		if err := e.WriteUint32(c.Snaplen); err != nil {
			return err
		}
	}

	if c.HasPromisc {
		if err := e.WriteUint64(wire.KeyPromisc); err != nil {
			return err
		}

		if err := e.WriteBool(c.Promisc); err != nil {
			return err
		}
	}

	if len(c.Interfaces) > 0 {
		if err := e.WriteUint64(wire.KeyInterfaces); err != nil {
			return err
		}

		if err := e.WriteArrayStart(len(c.Interfaces)); err != nil {
			return err
		}

		for _, iface := range c.Interfaces {
			if err := e.WriteTextstring(iface); err != nil {
				return err
			}
		}
	}

	if len(c.ServerAddresses) > 0 {
		if err := e.WriteUint64(wire.KeyServerAddress); err != nil {
			return err
		}

		if err := e.WriteArrayStart(len(c.ServerAddresses)); err != nil {
			return err
		}

		for _, addr := range c.ServerAddresses {
			if err := e.WriteBytestring(addr); err != nil {
				return err
			}
		}
	}

	if len(c.VlanIDs) > 0 {
		if err := e.WriteUint64(wire.KeyVlanIds); err != nil {
			return err
		}

		if err := e.WriteArrayStart(len(c.VlanIDs)); err != nil {
			return err
		}

		for _, id := range c.VlanIDs {
			if err := e.WriteUint32(id); err != nil {
				return err
			}
		}
	}

	if c.HasFilter {
		if err := e.WriteUint64(wire.KeyFilter); err != nil {
			return err
		}

		if err := e.WriteTextstring(c.Filter); err != nil {
			return err
		}
	}

	if c.HasGeneratorID {
		if err := e.WriteUint64(wire.KeyGeneratorID); err != nil {
			return err
		}

		if err := e.WriteTextstring(c.GeneratorID); err != nil {
			return err
		}
	}

	if c.HasHostID {
		if err := e.WriteUint64(wire.KeyHostID); err != nil {
			return err
		}

		if err := e.WriteTextstring(c.HostID); err != nil {
			return err
		}
	}

	return nil
}
