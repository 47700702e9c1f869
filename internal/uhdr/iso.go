package uhdr

import (
	"encoding/binary"
	"errors"
)

const (
	isoIsMultiChannelMask = 1 << 7
	isoUseBaseColorMask   = 1 << 6
	isoBackwardDirMask    = 1 << 2
	isoUseCommonDenomMask = 1 << 3
)

type gainmapMetadataFrac struct {
	GainMapMinN       [3]int32
	GainMapMinD       [3]uint32
	GainMapMaxN       [3]int32
	GainMapMaxD       [3]uint32
	GainMapGammaN     [3]uint32
	GainMapGammaD     [3]uint32
	BaseOffsetN       [3]int32
	BaseOffsetD       [3]uint32
	AltOffsetN        [3]int32
	AltOffsetD        [3]uint32
	BaseHdrHeadroomN  uint32
	BaseHdrHeadroomD  uint32
	AltHdrHeadroomN   uint32
	AltHdrHeadroomD   uint32
	BackwardDirection bool
	UseBaseColorSpace bool
	channels          int
}

// decodeISO parses an ISO 21496-1 gain map metadata payload without its namespace.
func decodeISO(data []byte) (*Metadata, error) {
	var frac gainmapMetadataFrac
	if err := frac.decode(data); err != nil {
		return nil, err
	}
	if frac.BackwardDirection {
		return nil, errors.New("iso backward direction not supported")
	}
	meta := Metadata{Version: jpegrVersion}
	if err := frac.toFloat(&meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (m *gainmapMetadataFrac) decode(in []byte) error {
	pos := 0
	readU16 := func() (uint16, error) {
		if pos+2 > len(in) {
			return 0, errors.New("iso metadata truncated")
		}
		v := binary.BigEndian.Uint16(in[pos:])
		pos += 2
		return v, nil
	}
	readU32 := func() (uint32, error) {
		if pos+4 > len(in) {
			return 0, errors.New("iso metadata truncated")
		}
		v := binary.BigEndian.Uint32(in[pos:])
		pos += 4
		return v, nil
	}
	readS32 := func() (int32, error) {
		v, err := readU32()
		return int32(v), err
	}

	minVer, err := readU16()
	if err != nil {
		return err
	}
	if minVer != 0 {
		return errors.New("unsupported iso min_version")
	}
	if _, err = readU16(); err != nil {
		return err
	}

	if pos+1 > len(in) {
		return errors.New("iso metadata truncated")
	}
	flags := in[pos]
	pos++
	m.channels = 1
	if flags&isoIsMultiChannelMask != 0 {
		m.channels = 3
	}
	m.UseBaseColorSpace = flags&isoUseBaseColorMask != 0
	m.BackwardDirection = flags&isoBackwardDirMask != 0

	if flags&isoUseCommonDenomMask != 0 {
		common, err := readU32()
		if err != nil {
			return err
		}
		m.BaseHdrHeadroomD = common
		m.AltHdrHeadroomD = common
		if m.BaseHdrHeadroomN, err = readU32(); err != nil {
			return err
		}
		if m.AltHdrHeadroomN, err = readU32(); err != nil {
			return err
		}
		for c := 0; c < m.channels; c++ {
			if m.GainMapMinN[c], err = readS32(); err != nil {
				return err
			}
			if m.GainMapMaxN[c], err = readS32(); err != nil {
				return err
			}
			if m.GainMapGammaN[c], err = readU32(); err != nil {
				return err
			}
			if m.BaseOffsetN[c], err = readS32(); err != nil {
				return err
			}
			if m.AltOffsetN[c], err = readS32(); err != nil {
				return err
			}
			m.GainMapMinD[c] = common
			m.GainMapMaxD[c] = common
			m.GainMapGammaD[c] = common
			m.BaseOffsetD[c] = common
			m.AltOffsetD[c] = common
		}
		m.broadcast()
		return nil
	}

	for _, dst := range []*uint32{&m.BaseHdrHeadroomN, &m.BaseHdrHeadroomD, &m.AltHdrHeadroomN, &m.AltHdrHeadroomD} {
		if *dst, err = readU32(); err != nil {
			return err
		}
	}
	for c := 0; c < m.channels; c++ {
		if m.GainMapMinN[c], err = readS32(); err != nil {
			return err
		}
		if m.GainMapMinD[c], err = readU32(); err != nil {
			return err
		}
		if m.GainMapMaxN[c], err = readS32(); err != nil {
			return err
		}
		if m.GainMapMaxD[c], err = readU32(); err != nil {
			return err
		}
		if m.GainMapGammaN[c], err = readU32(); err != nil {
			return err
		}
		if m.GainMapGammaD[c], err = readU32(); err != nil {
			return err
		}
		if m.BaseOffsetN[c], err = readS32(); err != nil {
			return err
		}
		if m.BaseOffsetD[c], err = readU32(); err != nil {
			return err
		}
		if m.AltOffsetN[c], err = readS32(); err != nil {
			return err
		}
		if m.AltOffsetD[c], err = readU32(); err != nil {
			return err
		}
	}
	m.broadcast()
	return nil
}

// broadcast copies channel 0 into the remaining channels of single channel metadata.
func (m *gainmapMetadataFrac) broadcast() {
	if m.channels != 1 {
		return
	}
	for c := 1; c < 3; c++ {
		m.GainMapMinN[c], m.GainMapMinD[c] = m.GainMapMinN[0], m.GainMapMinD[0]
		m.GainMapMaxN[c], m.GainMapMaxD[c] = m.GainMapMaxN[0], m.GainMapMaxD[0]
		m.GainMapGammaN[c], m.GainMapGammaD[c] = m.GainMapGammaN[0], m.GainMapGammaD[0]
		m.BaseOffsetN[c], m.BaseOffsetD[c] = m.BaseOffsetN[0], m.BaseOffsetD[0]
		m.AltOffsetN[c], m.AltOffsetD[c] = m.AltOffsetN[0], m.AltOffsetD[0]
	}
}

func (m *gainmapMetadataFrac) toFloat(to *Metadata) error {
	if m.BaseHdrHeadroomD == 0 || m.AltHdrHeadroomD == 0 {
		return errors.New("iso headroom denominator is zero")
	}
	for i := 0; i < 3; i++ {
		if m.GainMapMinD[i] == 0 || m.GainMapMaxD[i] == 0 || m.GainMapGammaD[i] == 0 ||
			m.BaseOffsetD[i] == 0 || m.AltOffsetD[i] == 0 {
			return errors.New("iso channel denominator is zero")
		}
		to.MinContentBoost[i] = exp2f(float32(m.GainMapMinN[i]) / float32(m.GainMapMinD[i]))
		to.MaxContentBoost[i] = exp2f(float32(m.GainMapMaxN[i]) / float32(m.GainMapMaxD[i]))
		to.Gamma[i] = float32(m.GainMapGammaN[i]) / float32(m.GainMapGammaD[i])
		to.OffsetSDR[i] = float32(m.BaseOffsetN[i]) / float32(m.BaseOffsetD[i])
		to.OffsetHDR[i] = float32(m.AltOffsetN[i]) / float32(m.AltOffsetD[i])
	}
	to.UseBaseCG = m.UseBaseColorSpace
	to.HDRCapacityMin = exp2f(float32(m.BaseHdrHeadroomN) / float32(m.BaseHdrHeadroomD))
	to.HDRCapacityMax = exp2f(float32(m.AltHdrHeadroomN) / float32(m.AltHdrHeadroomD))
	return nil
}
