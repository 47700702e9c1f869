package tilesplit

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/vearutop/tilesplit/internal/jpegx"
	"github.com/vearutop/tilesplit/internal/uhdr"
)

// Tier names reported in results and logs.
const (
	TierJpegli    = "jpegli"
	TierContainer = "container"
	TierImaging   = "imaging"
)

// Metadata sources reported in results and logs.
const (
	MetaPrimaryXMP = "primary xmp"
	MetaGainmapXMP = "gainmap xmp"
	MetaContainer  = "container codec"
)

// hdrSource is everything a tier recovers from an Ultra HDR input.
type hdrSource struct {
	meta       GainMapMetadata
	metaSource string
	sdr        *RawImage
	gainmap    *GainMap
	icc        []byte
}

// extractor is one extraction tier. A tier that cannot produce a complete
// source returns an error wrapping errTierFailed.
type extractor interface {
	name() string
	extract(data []byte) (*hdrSource, error)
}

func defaultExtractors(log *slog.Logger) []extractor {
	return []extractor{
		jpegliExtractor{log: log},
		uhdrExtractor{log: log},
	}
}

func tierFailed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errTierFailed}, args...)...)
}

// extractHDR runs the tiers in order and returns the first complete source.
func extractHDR(data []byte, chain []extractor, log *slog.Logger) (*hdrSource, string, error) {
	for _, ex := range chain {
		log.Debug("HDR extract: tier start", "tier", ex.name())
		src, err := ex.extract(data)
		if err != nil {
			log.Debug("HDR extract: tier failed", "tier", ex.name(), "error", err)
			continue
		}
		log.Debug("HDR extract: tier succeeded", "tier", ex.name(), "metadata", src.metaSource)
		return src, ex.name(), nil
	}
	return nil, "", ErrNotUltraHDR
}

// jpegliExtractor reads the primary XMP and locates the gain map in the raw
// bytes, decoding both images with jpegli.
type jpegliExtractor struct {
	log *slog.Logger
}

func (jpegliExtractor) name() string { return TierJpegli }

func (e jpegliExtractor) extract(data []byte) (*hdrSource, error) {
	segs, err := jpegx.HeaderSegments(data)
	if err != nil {
		return nil, tierFailed("header: %v", err)
	}
	xmp := jpegx.FindXMP(segs)
	if xmp == nil {
		return nil, tierFailed("no XMP in primary image")
	}
	meta, structured := xmpMetadata(xmp, e.log)

	img, err := decodeJPEG("jpegli decode primary", data)
	if err != nil {
		return nil, tierFailed("decode primary: %v", err)
	}

	gainmapJPEG := locateGainmap(data, e.log)
	if gainmapJPEG == nil {
		return nil, tierFailed("gain map not found")
	}

	source := MetaPrimaryXMP
	if meta.LooksDefaultOrIncomplete() {
		e.log.Debug("HDR extract: primary XMP metadata looks incomplete, trying gainmap XMP")
		if alt, ok := gainmapXMPMetadata(gainmapJPEG, e.log); ok {
			meta, source = alt, MetaGainmapXMP
		} else if !structured {
			return nil, tierFailed("primary XMP carries no usable gain map metadata")
		}
	}
	logMetadata(e.log, "HDR extract: selected metadata", &meta)

	icc := jpegx.CollectICC(segs)
	gamut := gamutFromICC(icc)
	gm, err := decodeGainmapJPEG(gainmapJPEG, gamut)
	if err != nil {
		return nil, tierFailed("decode gain map: %v", err)
	}

	return &hdrSource{
		meta:       meta,
		metaSource: source,
		sdr:        rawFromImage(img, gamut),
		gainmap:    gm,
		icc:        icc,
	}, nil
}

// uhdrExtractor delegates to the container codec and corrects the gamut it reports.
type uhdrExtractor struct {
	log *slog.Logger
}

func (uhdrExtractor) name() string { return TierContainer }

func (e uhdrExtractor) extract(data []byte) (*hdrSource, error) {
	d, err := guard("container decoder", func() (*uhdr.Decoder, error) {
		return uhdr.NewDecoder(data)
	})
	if err != nil {
		return nil, tierFailed("decoder: %v", err)
	}
	if !d.IsUltraHDR() {
		return nil, tierFailed("not Ultra HDR: %v", d.MetadataError())
	}
	pic, err := guard("container decode sdr", d.DecodeSDR)
	if err != nil {
		return nil, tierFailed("decode sdr: %v", err)
	}
	gm, err := guard("container decode gainmap", d.DecodeGainmap)
	if err != nil {
		return nil, tierFailed("decode gainmap: %v", err)
	}

	icc := d.ICCProfile()
	gamut := gamutFromICC(icc)
	if reported := gamutFromUHDR(pic.Gamut); reported != gamut {
		e.log.Debug("HDR extract: overriding SDR gamut", "reported", reported.String(), "detected", gamut.String())
	}
	meta := metadataFromUHDR(d.Metadata())
	logMetadata(e.log, "HDR extract: container metadata", &meta)

	return &hdrSource{
		meta:       meta,
		metaSource: MetaContainer,
		sdr: &RawImage{
			Width:    uint32(pic.Width),
			Height:   uint32(pic.Height),
			Stride:   uint32(pic.Stride),
			Format:   PixelRGBA8,
			Gamut:    gamut,
			Transfer: TransferSRGB,
			Data:     pic.Pix,
		},
		gainmap: &GainMap{
			Width:    uint32(gm.Width),
			Height:   uint32(gm.Height),
			Channels: uint8(gm.Channels),
			Data:     gm.Pix,
		},
		icc: icc,
	}, nil
}

func gamutFromUHDR(g uhdr.ColorGamut) ColorGamut {
	switch g {
	case uhdr.GamutDisplayP3:
		return GamutDisplayP3
	case uhdr.GamutBT2100:
		return GamutBT2100
	default:
		return GamutBT709
	}
}

// locateGainmap finds the gain map JPEG inside an Ultra HDR file. It tries the
// image that directly follows the primary EOI, then the MPF directory with the
// nominal offset and 8 byte corrections either way, then a raw marker scan.
func locateGainmap(data []byte, log *slog.Logger) []byte {
	if end, err := jpegx.FindJPEGEnd(data, 0); err == nil && bytes.HasPrefix(data[end:], []byte{jpegx.MarkerStart, jpegx.MarkerSOI}) {
		if gmEnd, err := jpegx.FindJPEGEnd(data, end); err == nil && jpegx.IsValidRange(data, end, gmEnd) {
			log.Debug("HDR extract: gainmap follows primary image", "start", end, "end", gmEnd)
			return data[end:gmEnd]
		}
	}

	if ranges, err := jpegx.LocateMPF(data); err != nil {
		log.Debug("HDR extract: MPF parse failed", "error", err)
	} else if len(ranges) < 2 {
		log.Debug("HDR extract: MPF does not contain secondary image")
	} else {
		start, end := ranges[1][0], ranges[1][1]
		for _, delta := range []int{0, 8, -8} {
			if jpegx.IsValidRange(data, start+delta, end+delta) {
				log.Debug("HDR extract: MPF gainmap slice validated", "start", start+delta, "end", end+delta, "delta", delta)
				return data[start+delta : end+delta]
			}
		}
		log.Debug("HDR extract: MPF range invalid, trying marker scan", "start", start, "end", end)
	}

	if ranges := jpegx.ScanJPEGs(data); len(ranges) >= 2 {
		start, end := ranges[1][0], ranges[1][1]
		if jpegx.IsValidRange(data, start, end) {
			log.Debug("HDR extract: marker scan gainmap slice", "start", start, "end", end)
			return data[start:end]
		}
	}

	log.Debug("HDR extract: could not find valid gainmap JPEG slice")
	return nil
}

// gainmapXMPMetadata parses the XMP copy embedded in a gain map JPEG and
// returns it only when it is complete.
func gainmapXMPMetadata(gainmapJPEG []byte, log *slog.Logger) (GainMapMetadata, bool) {
	segs, err := jpegx.HeaderSegments(gainmapJPEG)
	if err != nil {
		log.Debug("HDR extract: gainmap header unreadable", "error", err)
		return GainMapMetadata{}, false
	}
	xmp := jpegx.FindXMP(segs)
	if xmp == nil {
		log.Debug("HDR extract: gainmap XMP missing")
		return GainMapMetadata{}, false
	}
	meta, _ := xmpMetadata(xmp, log)
	if meta.LooksDefaultOrIncomplete() {
		log.Debug("HDR extract: gainmap XMP metadata still looks default or incomplete")
		return GainMapMetadata{}, false
	}
	log.Debug("HDR extract: using metadata from gainmap XMP")
	return meta, true
}

// xmpMetadata reads hdrgm metadata from an XMP packet with the structured
// parser and then the lenient overrides. When the structured parse fails the
// overrides start from neutral metadata, and structured is false.
func xmpMetadata(xmp []byte, log *slog.Logger) (meta GainMapMetadata, structured bool) {
	meta = neutralMetadata()
	if parsed, err := uhdr.ParseXMP(xmp); err != nil {
		log.Debug("HDR extract: structured XMP parse failed, scanning leniently", "error", err)
	} else {
		meta, structured = metadataFromUHDR(parsed), true
	}
	applyLenientOverrides(string(xmp), &meta)
	return meta, structured
}

func logMetadata(log *slog.Logger, msg string, m *GainMapMetadata) {
	log.Debug(msg,
		"min_boost", m.MinContentBoost,
		"max_boost", m.MaxContentBoost,
		"gamma", m.Gamma,
		"capacity_min", m.HDRCapacityMin,
		"capacity_max", m.HDRCapacityMax,
	)
}
