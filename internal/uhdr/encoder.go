package uhdr

import (
	"bytes"
	"errors"
	"math"

	"github.com/vearutop/tilesplit/internal/jpegx"
)

// Encoder assembles an UltraHDR container from compressed images.
type Encoder struct {
	sdr            []byte
	gainmap        []byte
	meta           *Metadata
	omitPrimaryXMP bool
}

// NewEncoder creates an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// SetCompressedSDR sets the primary SDR JPEG.
func (e *Encoder) SetCompressedSDR(jpeg []byte) *Encoder {
	e.sdr = jpeg
	return e
}

// SetExistingGainmapJPEG sets an already compressed gain map and its metadata.
// A gain map without XMP receives one generated from meta.
func (e *Encoder) SetExistingGainmapJPEG(jpeg []byte, meta *Metadata) *Encoder {
	e.gainmap = jpeg
	e.meta = meta
	return e
}

// OmitPrimaryXMP leaves the gain map description out of the primary image,
// leaving the gain map XMP as the only metadata source.
func (e *Encoder) OmitPrimaryXMP(omit bool) *Encoder {
	e.omitPrimaryXMP = omit
	return e
}

// Encode produces the container: primary XMP, MPF, primary image, gain map.
func (e *Encoder) Encode() ([]byte, error) {
	if !jpegx.HasSOI(e.sdr) || !jpegx.HasSOI(e.gainmap) {
		return nil, errors.New("invalid JPEG data")
	}
	if e.meta == nil {
		return nil, errors.New("metadata required")
	}
	meta := *e.meta
	if meta.Version == "" {
		meta.Version = jpegrVersion
	}

	gainmap := e.gainmap
	segs, err := jpegx.HeaderSegments(gainmap)
	if err != nil {
		return nil, err
	}
	if jpegx.FindXMP(segs) == nil && jpegx.FindISO(segs) == nil {
		gainmap, err = jpegx.InsertAfterSOI(gainmap, jpegx.MarkerAPP1, jpegx.XMPPayload(formatXMP(&meta, 0, false)))
		if err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	out.Write([]byte{jpegx.MarkerStart, jpegx.MarkerSOI})
	if !e.omitPrimaryXMP {
		if err := jpegx.WriteAppSegment(&out, jpegx.MarkerAPP1, jpegx.XMPPayload(formatXMP(&meta, len(gainmap), true))); err != nil {
			return nil, err
		}
	}

	mpfOffset := out.Len()
	placeholder, err := jpegx.BuildMPF(math.MaxUint32, uint64(len(gainmap)), mpfOffset)
	if err != nil {
		return nil, err
	}
	primarySize := uint64(out.Len() + len(placeholder) + len(e.sdr) - 2)
	mpf, err := jpegx.BuildMPF(primarySize, uint64(len(gainmap)), mpfOffset)
	if err != nil {
		return nil, err
	}
	out.Write(mpf)
	out.Write(e.sdr[2:])
	out.Write(gainmap)
	return out.Bytes(), nil
}
