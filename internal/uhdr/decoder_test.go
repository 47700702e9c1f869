package uhdr

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"testing"

	"github.com/vearutop/tilesplit/internal/jpegx"
)

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var b bytes.Buffer
	if err := jpeg.Encode(&b, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return b.Bytes()
}

func sampleContainer(t *testing.T, omitPrimaryXMP bool) ([]byte, *Metadata) {
	t.Helper()
	sdr := image.NewRGBA(image.Rect(0, 0, 64, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 64; x++ {
			sdr.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 6), B: 192, A: 255})
		}
	}
	gm := image.NewGray(image.Rect(0, 0, 16, 10))
	for i := range gm.Pix {
		gm.Pix[i] = 128
	}
	meta := &Metadata{
		Version:         "1.0",
		MaxContentBoost: [3]float32{4, 4, 4},
		MinContentBoost: [3]float32{1, 1, 1},
		Gamma:           [3]float32{1, 1, 1},
		OffsetSDR:       [3]float32{1.0 / 64, 1.0 / 64, 1.0 / 64},
		OffsetHDR:       [3]float32{1.0 / 64, 1.0 / 64, 1.0 / 64},
		HDRCapacityMin:  1,
		HDRCapacityMax:  4,
	}
	data, err := NewEncoder().
		SetCompressedSDR(encodeJPEG(t, sdr)).
		SetExistingGainmapJPEG(encodeJPEG(t, gm), meta).
		OmitPrimaryXMP(omitPrimaryXMP).
		Encode()
	if err != nil {
		t.Fatalf("encode container: %v", err)
	}
	return data, meta
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-3
}

func TestDecoderRoundTrip(t *testing.T) {
	for _, omit := range []bool{false, true} {
		data, want := sampleContainer(t, omit)

		d, err := NewDecoder(data)
		if err != nil {
			t.Fatalf("new decoder: %v", err)
		}
		if !d.IsUltraHDR() {
			t.Fatalf("omit=%v: not detected as UltraHDR: %v", omit, d.MetadataError())
		}
		got := d.Metadata()
		if !near(got.MaxContentBoost[2], want.MaxContentBoost[2]) || !near(got.HDRCapacityMax, want.HDRCapacityMax) {
			t.Fatalf("omit=%v: metadata = %+v", omit, got)
		}

		sdr, err := d.DecodeSDR()
		if err != nil {
			t.Fatalf("decode sdr: %v", err)
		}
		if sdr.Width != 64 || sdr.Height != 40 || sdr.Gamut != GamutBT709 {
			t.Fatalf("sdr = %dx%d gamut %d", sdr.Width, sdr.Height, sdr.Gamut)
		}
		gm, err := d.DecodeGainmap()
		if err != nil {
			t.Fatalf("decode gainmap: %v", err)
		}
		if gm.Width != 16 || gm.Height != 10 || gm.Channels != 1 || len(gm.Pix) != 160 {
			t.Fatalf("gainmap = %dx%dx%d (%d bytes)", gm.Width, gm.Height, gm.Channels, len(gm.Pix))
		}
	}
}

func TestDecoderPlainJPEG(t *testing.T) {
	data := encodeJPEG(t, image.NewGray(image.Rect(0, 0, 8, 8)))
	d, err := NewDecoder(data)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	if d.IsUltraHDR() {
		t.Fatalf("plain JPEG detected as UltraHDR")
	}
	if _, err := NewDecoder([]byte("not a jpeg")); err == nil {
		t.Fatalf("expected error for non-JPEG")
	}
}

func TestDetect(t *testing.T) {
	data, _ := sampleContainer(t, false)
	ok, err := Detect(bytes.NewReader(data))
	if err != nil || !ok {
		t.Fatalf("detect container = %v, %v", ok, err)
	}

	primaryEnd, err := jpegx.FindJPEGEnd(data, 0)
	if err != nil {
		t.Fatal(err)
	}
	plain := encodeJPEG(t, image.NewGray(image.Rect(0, 0, 8, 8)))
	iso, err := jpegx.InsertAfterSOI(plain, jpegx.MarkerAPP2, append(append([]byte{}, jpegx.ISOSignature...), isoPayload(2)...))
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name string
		data []byte
		want bool
	}{
		{"plain", plain, false},
		{"two plain images", append(append([]byte{}, plain...), plain...), false},
		{"iso gain map", append(append([]byte{}, plain...), iso...), true},
		{"truncated primary", data[:primaryEnd/2], false},
	} {
		ok, err := Detect(bytes.NewReader(tc.data))
		if err != nil || ok != tc.want {
			t.Fatalf("%s: detect = %v, %v", tc.name, ok, err)
		}
	}
}

func TestParseXMPSeqForm(t *testing.T) {
	xml := `<rdf:Description hdrgm:Version="1.0" hdrgm:HDRCapacityMax="2.0" hdrgm:OffsetSDR="0.1, 0.2, 0.3">
        <hdrgm:GainMapMax>
          <rdf:Seq>
            <rdf:li>1.0</rdf:li>
            <rdf:li>2.0</rdf:li>
            <rdf:li>3.0</rdf:li>
          </rdf:Seq>
        </hdrgm:GainMapMax>
      </rdf:Description>`
	meta, err := ParseXMP([]byte(xml))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !near(meta.MaxContentBoost[0], 2) || !near(meta.MaxContentBoost[1], 4) || !near(meta.MaxContentBoost[2], 8) {
		t.Fatalf("max boost = %v", meta.MaxContentBoost)
	}
	if !near(meta.HDRCapacityMax, 4) || !near(meta.OffsetSDR[2], 0.3) {
		t.Fatalf("metadata = %+v", meta)
	}
	if !near(meta.Gamma[1], 1) || !near(meta.MinContentBoost[0], 1) {
		t.Fatalf("defaults not applied: %+v", meta)
	}

	if _, err := ParseXMP([]byte(`hdrgm:Version="1.0" hdrgm:GainMapMax="2"`)); err == nil {
		t.Fatalf("expected error for missing HDRCapacityMax")
	}
}

func TestParseXMPElementForm(t *testing.T) {
	xml := `<rdf:Description hdrgm:Version="1.0">
        <hdrgm:GainMapMax>2</hdrgm:GainMapMax>
        <hdrgm:HDRCapacityMax> 3.0 </hdrgm:HDRCapacityMax>
        <hdrgm:Gamma>1.5, 1.25, 1.0</hdrgm:Gamma>
      </rdf:Description>`
	meta, err := ParseXMP([]byte(xml))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !near(meta.MaxContentBoost[0], 4) || !near(meta.MaxContentBoost[2], 4) || !near(meta.HDRCapacityMax, 8) {
		t.Fatalf("metadata = %+v", meta)
	}
	if !near(meta.Gamma[0], 1.5) || !near(meta.Gamma[1], 1.25) || !near(meta.Gamma[2], 1) {
		t.Fatalf("gamma = %v", meta.Gamma)
	}

	attr := `<rdf:Description hdrgm:Version="1.0" hdrgm:GainMapMax="1" hdrgm:HDRCapacityMax="1">
        <hdrgm:GainMapMax>3</hdrgm:GainMapMax>
      </rdf:Description>`
	meta, err = ParseXMP([]byte(attr))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !near(meta.MaxContentBoost[0], 2) {
		t.Fatalf("attribute should win over element, max boost = %v", meta.MaxContentBoost)
	}
}

// isoPayload encodes single-channel ISO 21496-1 metadata with a common
// denominator of 2: capacity 4 and a max boost of 2^(maxNum/2).
func isoPayload(maxNum uint32) []byte {
	var p []byte
	p = binary.BigEndian.AppendUint16(p, 0) // min version
	p = binary.BigEndian.AppendUint16(p, 0) // writer version
	p = append(p, isoUseCommonDenomMask)
	p = binary.BigEndian.AppendUint32(p, 2) // common denominator
	p = binary.BigEndian.AppendUint32(p, 0) // base headroom: log2 = 0
	p = binary.BigEndian.AppendUint32(p, 4) // alt headroom: log2 = 2
	for _, v := range []uint32{0, maxNum, 2, 1, 1} {
		p = binary.BigEndian.AppendUint32(p, v)
	}
	return p
}

func TestDecodeISOCommonDenominator(t *testing.T) {
	p := isoPayload(4)

	meta, err := decodeISO(p)
	if err != nil {
		t.Fatalf("decode iso: %v", err)
	}
	if !near(meta.MaxContentBoost[2], 4) || !near(meta.HDRCapacityMax, 4) || !near(meta.Gamma[1], 1) {
		t.Fatalf("metadata = %+v", meta)
	}
	if !near(meta.OffsetSDR[0], 0.5) || !near(meta.HDRCapacityMin, 1) {
		t.Fatalf("metadata = %+v", meta)
	}

	if _, err := decodeISO(p[:10]); err == nil {
		t.Fatalf("expected error for truncated payload")
	}
}

func TestFindMetadataPrefersXMPOverISO(t *testing.T) {
	sdr := encodeJPEG(t, image.NewGray(image.Rect(0, 0, 64, 40)))
	plainGainmap := encodeJPEG(t, image.NewGray(image.Rect(0, 0, 16, 10)))
	xmpMeta := &Metadata{
		Version:         "1.0",
		MaxContentBoost: [3]float32{8, 8, 8},
		MinContentBoost: [3]float32{1, 1, 1},
		Gamma:           [3]float32{1, 1, 1},
		OffsetSDR:       [3]float32{1.0 / 64, 1.0 / 64, 1.0 / 64},
		OffsetHDR:       [3]float32{1.0 / 64, 1.0 / 64, 1.0 / 64},
		HDRCapacityMin:  1,
		HDRCapacityMax:  8,
	}
	iso := append(append([]byte{}, jpegx.ISOSignature...), isoPayload(2)...)

	withISO, err := jpegx.InsertAfterSOI(plainGainmap, jpegx.MarkerAPP2, iso)
	if err != nil {
		t.Fatal(err)
	}
	withBoth, err := jpegx.InsertAfterSOI(withISO, jpegx.MarkerAPP1, jpegx.XMPPayload(formatXMP(xmpMeta, 0, false)))
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name    string
		gainmap []byte
		boost   float32
	}{
		{"xmp and iso", withBoth, 8},
		{"iso only", withISO, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data, err := NewEncoder().
				SetCompressedSDR(sdr).
				SetExistingGainmapJPEG(tc.gainmap, xmpMeta).
				OmitPrimaryXMP(true).
				Encode()
			if err != nil {
				t.Fatalf("encode container: %v", err)
			}
			d, err := NewDecoder(data)
			if err != nil {
				t.Fatal(err)
			}
			if !d.IsUltraHDR() {
				t.Fatalf("not Ultra HDR: %v", d.MetadataError())
			}
			if got := d.Metadata().MaxContentBoost[0]; !near(got, tc.boost) {
				t.Fatalf("max boost = %v, want %v", got, tc.boost)
			}
		})
	}
}
