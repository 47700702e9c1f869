package tilesplit

import (
	"fmt"
	"math"

	"github.com/vearutop/tilesplit/internal/jpegx"
)

// encodeGainmapJPEG encodes a gain map crop and embeds its own XMP right after SOI.
func encodeGainmapJPEG(g *GainMap, meta *GainMapMetadata, quality int) ([]byte, error) {
	img, err := imageFromGainmap(g)
	if err != nil {
		return nil, err
	}
	raw, err := encodeJPEG(img, quality, nil)
	if err != nil {
		return nil, err
	}
	out, err := jpegx.InsertAfterSOI(raw, jpegx.MarkerAPP1, jpegx.XMPPayload(GenerateGainmapXMP(meta)))
	if err != nil {
		return nil, fmt.Errorf("%w: gainmap xmp: %w", ErrIO, err)
	}
	return out, nil
}

// AssembleUltraHDR builds a standalone Ultra HDR JPEG from an SDR JPEG and a
// finished gain map JPEG. The output layout is SOI, primary XMP, the original
// APP segments, MPF, the rest of the SDR image and then the gain map.
func AssembleUltraHDR(sdrJPEG, gainmapJPEG []byte, meta *GainMapMetadata) ([]byte, error) {
	if !jpegx.HasSOI(sdrJPEG) || !jpegx.HasSOI(gainmapJPEG) {
		return nil, fmt.Errorf("%w: assemble: %w", ErrIO, jpegx.ErrNotJPEG)
	}
	primary, err := jpegx.InsertAfterSOI(sdrJPEG, jpegx.MarkerAPP1,
		jpegx.XMPPayload(GeneratePrimaryXMP(meta, len(gainmapJPEG))))
	if err != nil {
		return nil, fmt.Errorf("%w: primary xmp: %w", ErrIO, err)
	}

	pos, err := jpegx.AppInsertPosition(primary)
	if err != nil {
		return nil, fmt.Errorf("%w: mpf position: %w", ErrIO, err)
	}

	// The MPF directory records the size of the primary image it is part of,
	// so measure it with a placeholder first.
	gmSize := uint64(len(gainmapJPEG))
	placeholder, err := jpegx.BuildMPF(math.MaxUint32, gmSize, pos)
	if err != nil {
		return nil, fmt.Errorf("%w: mpf: %w", ErrIO, err)
	}
	primarySize := uint64(len(primary)) + uint64(len(placeholder))
	mpf, err := jpegx.BuildMPF(primarySize, gmSize, pos)
	if err != nil {
		return nil, fmt.Errorf("%w: mpf: %w", ErrIO, err)
	}

	out := make([]byte, 0, len(primary)+len(mpf)+len(gainmapJPEG))
	out = append(out, primary[:pos]...)
	out = append(out, mpf...)
	out = append(out, primary[pos:]...)
	out = append(out, gainmapJPEG...)
	return out, nil
}

// encodeTile encodes one SDR tile with its gain map crop into an Ultra HDR JPEG.
// The gain map is encoded first because the primary XMP records its length.
func encodeTile(sdr *RawImage, gm *GainMap, meta *GainMapMetadata, icc []byte, o *Options) ([]byte, error) {
	gainmapJPEG, err := encodeGainmapJPEG(gm, meta, o.GainmapQuality)
	if err != nil {
		return nil, err
	}
	img, err := imageFromRaw(sdr)
	if err != nil {
		return nil, err
	}
	sdrJPEG, err := encodeJPEG(img, o.SDRQuality, icc)
	if err != nil {
		return nil, err
	}
	return AssembleUltraHDR(sdrJPEG, gainmapJPEG, meta)
}
