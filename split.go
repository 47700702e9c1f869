package tilesplit

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/vearutop/tilesplit/internal/fileutil"
	"github.com/vearutop/tilesplit/internal/logging"
)

// Split modes reported in Result.
const (
	ModeHDR = "hdr"
	ModeSDR = "sdr"
)

// Options controls encoding quality, logging and result reporting.
type Options struct {
	// Logger receives the debug trace and user-visible warnings.
	// It defaults to a warn level console logger on stderr, lowered to debug
	// when SplitParams.Debug or TILESPLIT_DEBUG is set.
	Logger          *slog.Logger
	SDRQuality      int
	GainmapQuality  int
	FallbackQuality int
	OnResult        func(res *Result)

	extractors []extractor
}

// TileResult describes one written tile.
type TileResult struct {
	Path   string
	Rect   Rect
	Size   int
	Digest uint64
}

// Result describes a completed split.
type Result struct {
	Mode           string
	Tier           string
	MetadataSource string
	Left, Right    TileResult
}

// Tiles holds two encoded Ultra HDR tiles produced in memory.
type Tiles struct {
	Left, Right         []byte
	LeftRect, RightRect Rect
	Tier                string
	MetadataSource      string
	Metadata            GainMapMetadata
}

func newOptions(debug bool, opts []func(o *Options)) *Options {
	o := &Options{
		SDRQuality:      defaultSDRQuality,
		GainmapQuality:  defaultGainmapQuality,
		FallbackQuality: defaultFallbackQuality,
	}
	for _, applyOpt := range opts {
		applyOpt(o)
	}
	if o.Logger == nil {
		l, err := logging.New(logging.Options{Level: "warn", Debug: debug})
		if err != nil {
			l = logging.NewNop()
		}
		o.Logger = l
	}
	if o.extractors == nil {
		o.extractors = defaultExtractors(o.Logger)
	}
	return o
}

// SplitBytes splits an Ultra HDR JPEG held in memory into two Ultra HDR tiles.
// It returns ErrNotUltraHDR when no extraction tier recognizes a gain map.
func SplitBytes(data []byte, opts ...func(o *Options)) (*Tiles, error) {
	return splitBytes(data, newOptions(false, opts))
}

func splitBytes(data []byte, o *Options) (*Tiles, error) {
	src, tier, err := extractHDR(data, o.extractors, o.Logger)
	if err != nil {
		return nil, err
	}
	tiles, err := splitHDR(src, o)
	if err != nil {
		return nil, err
	}
	tiles.Tier = tier
	return tiles, nil
}

func splitHDR(src *hdrSource, o *Options) (*Tiles, error) {
	log := o.Logger
	sdr, gm := src.sdr, src.gainmap
	log.Debug("HDR split: dimensions", "sdr", fmt.Sprintf("%dx%d", sdr.Width, sdr.Height),
		"gainmap", fmt.Sprintf("%dx%d", gm.Width, gm.Height))
	if sdr.Width == 0 || sdr.Height == 0 || gm.Width == 0 || gm.Height == 0 {
		return nil, fmt.Errorf("%w: empty primary image or gain map", ErrInvalidInput)
	}

	left, right, err := ComputeSplitRectangles(sdr.Width, sdr.Height)
	if err != nil {
		return nil, err
	}
	log.Debug("HDR split: rectangles", "left", left.String(), "right", right.String())

	tiles := &Tiles{LeftRect: left, RightRect: right, MetadataSource: src.metaSource, Metadata: src.meta}
	for _, t := range []struct {
		rect Rect
		out  *[]byte
	}{{left, &tiles.Left}, {right, &tiles.Right}} {
		sdrTile, err := CropRawImage(sdr, t.rect)
		if err != nil {
			return nil, err
		}
		gmRect := MapRectToGainmap(t.rect, sdr.Width, sdr.Height, gm.Width, gm.Height)
		gmTile, err := CropGainmap(gm, gmRect)
		if err != nil {
			return nil, err
		}
		log.Debug("HDR split: gainmap crop", "rect", t.rect.String(), "gainmap_rect", gmRect.String())

		*t.out, err = encodeTile(sdrTile, gmTile, &src.meta, src.icc, o)
		if err != nil {
			return nil, err
		}
	}
	return tiles, nil
}

// Run splits params.Input into params.LeftOutput and params.RightOutput.
//
// Ultra HDR JPEG inputs written to JPEG outputs produce Ultra HDR tiles. Every
// other input, and any HDR attempt that fails with ErrIO, produces plain tiles.
// Geometry errors are returned as is; ExitCode maps any error to an exit status.
func Run(params SplitParams, opts ...func(o *Options)) error {
	o := newOptions(params.Debug, opts)
	log := o.Logger
	log.Debug("Run", "input", params.Input, "left", params.LeftOutput, "right", params.RightOutput)

	if params.Input == "" || params.LeftOutput == "" || params.RightOutput == "" {
		return fmt.Errorf("%w: input and both output paths are required", ErrUsage)
	}

	res, err := runHDR(params, o)
	switch {
	case err == nil:
		log.Debug("Run: completed in HDR path")
	case errors.Is(err, ErrNotUltraHDR):
		log.Debug("Run: fallback to standard split", "reason", err)
		if isJPEGPath(params.Input) {
			log.Warn("input is not Ultra HDR; output will be SDR (no HDR gain map)")
		}
		res, err = splitStandard(params, o)
	case errors.Is(err, ErrIO):
		log.Warn("HDR extraction failed; falling back to SDR output (brightness may be reduced)", "error", err)
		res, err = splitStandard(params, o)
	}
	if err != nil {
		log.Debug("Run: failed", "exit_code", ExitCode(err), "error", err)
		return err
	}

	if o.OnResult != nil {
		o.OnResult(res)
	}
	return nil
}

func runHDR(params SplitParams, o *Options) (*Result, error) {
	if !isJPEGPath(params.Input) || !isJPEGPath(params.LeftOutput) || !isJPEGPath(params.RightOutput) {
		o.Logger.Debug("HDR split: skipped (non-jpeg path)")
		return nil, ErrNotUltraHDR
	}

	data, err := os.ReadFile(params.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: read input: %w", ErrIO, err)
	}
	o.Logger.Debug("HDR split: loaded source bytes", "bytes", len(data))

	tiles, err := splitBytes(data, o)
	if err != nil {
		return nil, err
	}

	res := &Result{Mode: ModeHDR, Tier: tiles.Tier, MetadataSource: tiles.MetadataSource}
	if res.Left, err = writeTile(params.LeftOutput, tiles.Left, tiles.LeftRect); err != nil {
		return nil, err
	}
	if res.Right, err = writeTile(params.RightOutput, tiles.Right, tiles.RightRect); err != nil {
		return nil, err
	}
	o.Logger.Debug("HDR split: wrote tiles", "left", params.LeftOutput, "right", params.RightOutput)
	return res, nil
}

func writeTile(path string, data []byte, r Rect) (TileResult, error) {
	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		return TileResult{}, fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	return TileResult{Path: path, Rect: r, Size: len(data), Digest: fileutil.ContentHash(data)}, nil
}
