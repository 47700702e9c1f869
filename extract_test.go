package tilesplit

import (
	"bytes"
	"errors"
	"log/slog"
	"runtime/debug"
	"testing"

	"github.com/vearutop/tilesplit/internal/jpegx"
	"github.com/vearutop/tilesplit/internal/logging"
	"github.com/vearutop/tilesplit/internal/testsupport"
)

func testLogger() *slog.Logger {
	return logging.NewNop()
}

func buildFixture(t *testing.T, w, h int, f testsupport.Fixture) []byte {
	t.Helper()
	data, err := testsupport.BuildUltraHDR(w, h, f)
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return data
}

func TestExtractHDR(t *testing.T) {
	for _, tc := range []struct {
		name       string
		fixture    testsupport.Fixture
		tier       string
		metaSource string
	}{
		{"primary xmp", testsupport.Fixture{}, TierJpegli, MetaPrimaryXMP},
		{"no primary xmp", testsupport.Fixture{OmitPrimaryXMP: true}, TierContainer, MetaContainer},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := buildFixture(t, 160, 100, tc.fixture)
			src, tier, err := extractHDR(data, defaultExtractors(testLogger()), testLogger())
			if err != nil {
				t.Fatal(err)
			}
			if tier != tc.tier || src.metaSource != tc.metaSource {
				t.Fatalf("got tier %q source %q", tier, src.metaSource)
			}
			if src.sdr.Width != 160 || src.sdr.Height != 100 {
				t.Fatalf("sdr %dx%d", src.sdr.Width, src.sdr.Height)
			}
			if src.gainmap.Width != 40 || src.gainmap.Height != 25 || src.gainmap.Channels != 1 {
				t.Fatalf("gain map %dx%dx%d", src.gainmap.Width, src.gainmap.Height, src.gainmap.Channels)
			}
			if got := src.meta.MaxContentBoost[0]; got < 3.99 || got > 4.01 {
				t.Fatalf("max content boost %v", got)
			}
		})
	}
}

func TestExtractHDRNotUltraHDR(t *testing.T) {
	data, err := testsupport.PlainJPEG(160, 100)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := extractHDR(data, defaultExtractors(testLogger()), testLogger()); !errors.Is(err, ErrNotUltraHDR) {
		t.Fatalf("got %v", err)
	}
	if _, err := SplitBytes(data); !errors.Is(err, ErrNotUltraHDR) {
		t.Fatalf("SplitBytes: got %v", err)
	}
}

type recordingExtractor struct {
	calls *[]string
	tag   string
	src   *hdrSource
}

func (r recordingExtractor) name() string { return r.tag }

func (r recordingExtractor) extract([]byte) (*hdrSource, error) {
	*r.calls = append(*r.calls, r.tag)
	if r.src == nil {
		return nil, tierFailed("%s unavailable", r.tag)
	}
	return r.src, nil
}

func TestExtractHDRChainOrder(t *testing.T) {
	var calls []string
	want := &hdrSource{metaSource: "stub"}
	chain := []extractor{
		recordingExtractor{calls: &calls, tag: "a"},
		recordingExtractor{calls: &calls, tag: "b", src: want},
		recordingExtractor{calls: &calls, tag: "c", src: &hdrSource{}},
	}
	src, tier, err := extractHDR(nil, chain, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if src != want || tier != "b" {
		t.Fatalf("got tier %q", tier)
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Fatalf("calls %v", calls)
	}
}

func TestTierFallbackMatchesContainerTier(t *testing.T) {
	data := buildFixture(t, 160, 100, testsupport.Fixture{OmitPrimaryXMP: true})

	chained, err := splitBytes(data, newOptions(false, nil))
	if err != nil {
		t.Fatal(err)
	}
	direct, err := splitBytes(data, newOptions(false, []func(o *Options){func(o *Options) {
		o.extractors = []extractor{uhdrExtractor{log: testLogger()}}
	}}))
	if err != nil {
		t.Fatal(err)
	}
	if chained.Tier != TierContainer || direct.Tier != TierContainer {
		t.Fatalf("tiers %q and %q", chained.Tier, direct.Tier)
	}
	if !bytes.Equal(chained.Left, direct.Left) || !bytes.Equal(chained.Right, direct.Right) {
		t.Fatal("fallback output differs from the container tier alone")
	}
}

func TestJpegliExtractorUsesGainmapXMP(t *testing.T) {
	sdr, err := testsupport.PlainJPEG(160, 100)
	if err != nil {
		t.Fatal(err)
	}
	want := testMetadata()
	neutral := want
	neutral.MaxContentBoost = [3]float32{1, 1, 1}
	neutral.HDRCapacityMax = 1

	gm, err := encodeGainmapJPEG(flatGainmap(40, 25, 128), &want, 90)
	if err != nil {
		t.Fatal(err)
	}
	data, err := AssembleUltraHDR(sdr, gm, &neutral)
	if err != nil {
		t.Fatal(err)
	}

	src, err := jpegliExtractor{log: testLogger()}.extract(data)
	if err != nil {
		t.Fatal(err)
	}
	if src.metaSource != MetaGainmapXMP {
		t.Fatalf("metadata source %q", src.metaSource)
	}
	assertMetadataClose(t, &src.meta, &want)
}

// containerWithPrimaryXMP joins a primary JPEG carrying xml with a gain map
// JPEG that has no metadata of its own.
func containerWithPrimaryXMP(t *testing.T, xml string) []byte {
	t.Helper()
	sdr, err := testsupport.PlainJPEG(160, 100)
	if err != nil {
		t.Fatal(err)
	}
	primary, err := jpegx.InsertAfterSOI(sdr, jpegx.MarkerAPP1, jpegx.XMPPayload(xml))
	if err != nil {
		t.Fatal(err)
	}
	img, err := imageFromGainmap(flatGainmap(40, 25, 128))
	if err != nil {
		t.Fatal(err)
	}
	gm, err := encodeJPEG(img, 90, nil)
	if err != nil {
		t.Fatal(err)
	}
	return append(primary, gm...)
}

func hdrgmXMP(attrs, body string) string {
	return `<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">` +
		`<rdf:Description rdf:about="" xmlns:hdrgm="` + hdrgmNamespace + `" ` + attrs + `>` + body +
		`</rdf:Description></rdf:RDF></x:xmpmeta>`
}

func TestJpegliExtractorElementFormXMP(t *testing.T) {
	want := neutralMetadata()
	want.MaxContentBoost = [3]float32{4, 4, 4}
	want.HDRCapacityMax = 4

	for _, tc := range []struct {
		name string
		xml  string
	}{
		{"element values", hdrgmXMP(`hdrgm:Version="1.0"`,
			`<hdrgm:GainMapMax>2</hdrgm:GainMapMax><hdrgm:HDRCapacityMax>2</hdrgm:HDRCapacityMax>`)},
		{"element version", hdrgmXMP(``,
			`<hdrgm:Version>1.0</hdrgm:Version><hdrgm:GainMapMax>2.0</hdrgm:GainMapMax>`+
				`<hdrgm:HDRCapacityMax> 2.0 </hdrgm:HDRCapacityMax>`)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			src, err := jpegliExtractor{log: testLogger()}.extract(containerWithPrimaryXMP(t, tc.xml))
			if err != nil {
				t.Fatal(err)
			}
			if src.metaSource != MetaPrimaryXMP {
				t.Fatalf("metadata source %q", src.metaSource)
			}
			assertMetadataClose(t, &src.meta, &want)
			if src.gainmap.Width != 40 || src.gainmap.Height != 25 {
				t.Fatalf("gain map %dx%d", src.gainmap.Width, src.gainmap.Height)
			}
		})
	}
}

func TestJpegliExtractorRejectsXMPWithoutGainmapValues(t *testing.T) {
	data := containerWithPrimaryXMP(t, hdrgmXMP(`hdrgm:Version="1.0"`, ``))
	_, err := jpegliExtractor{log: testLogger()}.extract(data)
	if !errors.Is(err, errTierFailed) {
		t.Fatalf("got %v", err)
	}
}

func TestLocateGainmap(t *testing.T) {
	data := buildFixture(t, 160, 100, testsupport.Fixture{})
	primaryEnd, err := jpegx.FindJPEGEnd(data, 0)
	if err != nil {
		t.Fatal(err)
	}
	gm := data[primaryEnd:]

	t.Run("trailing", func(t *testing.T) {
		if got := locateGainmap(data, testLogger()); !bytes.Equal(got, gm) {
			t.Fatalf("got %d bytes, want %d", len(got), len(gm))
		}
	})

	t.Run("mpf offset off by eight", func(t *testing.T) {
		shifted := make([]byte, 0, len(data)+8)
		shifted = append(shifted, data[:primaryEnd]...)
		shifted = append(shifted, "padding!"...)
		shifted = append(shifted, gm...)
		if got := locateGainmap(shifted, testLogger()); !bytes.Equal(got, gm) {
			t.Fatalf("got %d bytes, want %d", len(got), len(gm))
		}
	})

	t.Run("marker scan", func(t *testing.T) {
		a, err := testsupport.PlainJPEG(32, 20)
		if err != nil {
			t.Fatal(err)
		}
		b, err := testsupport.PlainJPEG(8, 5)
		if err != nil {
			t.Fatal(err)
		}
		joined := append(append(append([]byte{}, a...), "junk"...), b...)
		if got := locateGainmap(joined, testLogger()); !bytes.Equal(got, b) {
			t.Fatalf("got %d bytes, want %d", len(got), len(b))
		}
	})

	t.Run("single image", func(t *testing.T) {
		a, err := testsupport.PlainJPEG(32, 20)
		if err != nil {
			t.Fatal(err)
		}
		if got := locateGainmap(a, testLogger()); got != nil {
			t.Fatalf("got %d bytes", len(got))
		}
	})
}

func TestGuard(t *testing.T) {
	prev := debug.SetPanicOnFault(false)
	defer debug.SetPanicOnFault(prev)

	v, err := guard("ok", func() (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Fatalf("got %d, %v", v, err)
	}

	v, err = guard("boom", func() (int, error) {
		var s []int
		return s[3], nil
	})
	if !errors.Is(err, errCodecPanic) || v != 0 {
		t.Fatalf("got %d, %v", v, err)
	}
	if debug.SetPanicOnFault(false) {
		t.Fatal("fault setting not restored")
	}
}
