package reader

import (
	"github.com/CZ-NIC/go-cdns/block"
	"github.com/CZ-NIC/go-cdns/cbor"
	"github.com/CZ-NIC/go-cdns/errs"
	"github.com/CZ-NIC/go-cdns/wire"
)

func readFilePreamble(d *cbor.Decoder) (block.FilePreamble, error) {
	var p block.FilePreamble

	var sawVersion, sawBlockParameters bool

	err := forEachMapEntry(d, func(key uint64) error {
		switch key {
		case wire.KeyMajorFormatVersion:
			v, err := d.ReadUnsigned()
			p.MajorVersion = v
			sawVersion = true

			return err
		case wire.KeyMinorFormatVersion:
			v, err := d.ReadUnsigned()
			p.MinorVersion = v

			return err
		case wire.KeyPrivateVersion:
			v, err := d.ReadUnsigned()
			p.PrivateVersion = v

			return err
		case wire.KeyBlockParameters:
			sawBlockParameters = true

			return d.ReadArray(func(int) error {
				bp, err := readBlockParameters(d)
				if err != nil {
					return err
				}

				p.BlockParameters = append(p.BlockParameters, bp)

				return nil
			})
		default:
			return d.SkipItem()
		}
	})
	if err != nil {
		return p, err
	}

	if !sawVersion || !sawBlockParameters {
		return p, errs.ErrMissingPreamble
	}

	if p.MajorVersion != wire.VersionMajor {
		return p, errs.ErrUnsupportedVersion
	}

	return p, nil
}

func readBlockParameters(d *cbor.Decoder) (block.BlockParameters, error) {
	var bp block.BlockParameters

	var sawStorage bool

	err := forEachMapEntry(d, func(key uint64) error {
		switch key {
		case wire.KeyStorageParameters:
			sp, err := readStorageParameters(d)
			bp.Storage = sp
			sawStorage = true

			return err
		case wire.KeyCollectionParameters:
			cp, err := readCollectionParameters(d)
			bp.Collection, bp.HasCollection = cp, true

			return err
		default:
			return d.SkipItem()
		}
	})
	if err != nil {
		return bp, err
	}

	if !sawStorage {
		return bp, errs.ErrMissingField
	}

	return bp, nil
}

func readStorageParameters(d *cbor.Decoder) (block.StorageParameters, error) {
	var s block.StorageParameters

	err := forEachMapEntry(d, func(key uint64) error {
		switch key {
		case wire.KeyTicksPerSecond:
			v, err := d.ReadUnsigned()
			s.TicksPerSecond = v

			return err
		case wire.KeyMaxBlockItems:
			v, err := d.ReadUnsigned()
			s.MaxBlockItems = uint32(v)

			return err
		case wire.KeyStorageHints:
			h, err := readStorageHints(d)
			s.StorageHints = h

			return err
		case wire.KeyOpcodes:
			vs, err := readUint16List(d)
			s.Opcodes = vs

			return err
		case wire.KeyRRTypes:
			vs, err := readUint16List(d)
			s.RRTypes = vs

			return err
		case wire.KeyStorageFlags:
			v, err := d.ReadUnsigned()
			s.StorageFlags, s.HasStorageFlags = uint8(v), true

			return err
		case wire.KeyClientAddressPrefixV4:
			v, err := d.ReadUnsigned()
			s.ClientAddressPrefixV4, s.HasClientAddressPrefixV4 = uint8(v), true

			return err
		case wire.KeyClientAddressPrefixV6:
			v, err := d.ReadUnsigned()
			s.ClientAddressPrefixV6, s.HasClientAddressPrefixV6 = uint8(v), true

			return err
		case wire.KeyServerAddressPrefixV4:
			v, err := d.ReadUnsigned()
			s.ServerAddressPrefixV4, s.HasServerAddressPrefixV4 = uint8(v), true

			return err
		case wire.KeyServerAddressPrefixV6:
			v, err := d.ReadUnsigned()
			s.ServerAddressPrefixV6, s.HasServerAddressPrefixV6 = uint8(v), true

			return err
		case wire.KeySamplingMethod:
			v, err := d.ReadTextstring()
			s.SamplingMethod, s.HasSamplingMethod = v, true

			return err
		case wire.KeyAnonymizationMethod:
			v, err := d.ReadTextstring()
			s.AnonymizationMethod, s.HasAnonymizationMethod = v, true

			return err
		default:
			return d.SkipItem()
		}
	})

	return s, err
}

func readStorageHints(d *cbor.Decoder) (block.StorageHints, error) {
	var h block.StorageHints

	err := forEachMapEntry(d, func(key uint64) error {
		v, err := d.ReadUnsigned()
		if err != nil {
			return err
		}

		switch key {
		case wire.KeyQueryResponseHints:
			h.QueryResponseHints = uint32(v)
		case wire.KeyQueryResponseSignatureHints:
			h.QueryResponseSignatureHints = uint32(v)
		case wire.KeyRRHints:
			h.RRHints = uint32(v)
		case wire.KeyOtherDataHints:
			h.OtherDataHints = uint32(v)
		}

		return nil
	})

	return h, err
}

func readUint16List(d *cbor.Decoder) ([]uint16, error) {
	var vs []uint16

	err := d.ReadArray(func(int) error {
		v, err := d.ReadUnsigned()
		vs = append(vs, uint16(v))

		return err
	})

	return vs, err
}

func readCollectionParameters(d *cbor.Decoder) (block.CollectionParameters, error) {
	var c block.CollectionParameters

	err := forEachMapEntry(d, func(key uint64) error {
		switch key {
		case wire.KeyQueryTimeout:
			v, err := d.ReadUnsigned()
			c.QueryTimeout, c.HasQueryTimeout = uint32(v), true

			return err
		case wire.KeySkewTimeout:
			v, err := d.ReadUnsigned()
			c.SkewTimeout, c.HasSkewTimeout = uint32(v), true

			return err
		case wire.KeySnaplen:
			v, err := d.ReadUnsigned()
			c.Snaplen, c.HasSnaplen = uint32(v), true

			return err
		case wire.KeyPromisc:
			v, err := d.ReadBool()
			c.Promisc, c.HasPromisc = v, true

			return err
		case wire.KeyInterfaces:
			return d.ReadArray(func(int) error {
				v, err := d.ReadTextstring()
				c.Interfaces = append(c.Interfaces, v)

				return err
			})
		case wire.KeyServerAddress:
			return d.ReadArray(func(int) error {
				v, err := d.ReadBytestring()
				c.ServerAddresses = append(c.ServerAddresses, v)

				return err
			})
		case wire.KeyVlanIds:
			return d.ReadArray(func(int) error {
				v, err := d.ReadUnsigned()
				c.VlanIDs = append(c.VlanIDs, uint32(v))

				return err
			})
		case wire.KeyFilter:
			v, err := d.ReadTextstring()
			c.Filter, c.HasFilter = v, true

			return err
		case wire.KeyGeneratorID:
			v, err := d.ReadTextstring()
			c.GeneratorID, c.HasGeneratorID = v, true

			return err
		case wire.KeyHostID:
			v, err := d.ReadTextstring()
			c.HostID, c.HasHostID = v, true

			return err
		default:
			return d.SkipItem()
		}
	})

	return c, err
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
