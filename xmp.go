package tilesplit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var reSeqItem = regexp.MustCompile(`(?s)<rdf:li>(.*?)</rdf:li>`)

// applyLenientOverrides rescans raw XMP text for hdrgm values and overwrites
// whatever a structured parser produced. Each tag is looked up as an rdf:Seq,
// then as an attribute, then as an element; the first form found wins.
func applyLenientOverrides(xml string, m *GainMapMetadata) {
	if v, ok := channelValues(xml, "hdrgm:GainMapMin"); ok {
		m.MinContentBoost = exp2All(v)
	}
	if v, ok := channelValues(xml, "hdrgm:GainMapMax"); ok {
		m.MaxContentBoost = exp2All(v)
	}
	if v, ok := channelValues(xml, "hdrgm:Gamma"); ok {
		m.Gamma = v
	}
	if v, ok := channelValues(xml, "hdrgm:OffsetSDR"); ok {
		m.OffsetSDR = v
	}
	if v, ok := channelValues(xml, "hdrgm:OffsetHDR"); ok {
		m.OffsetHDR = v
	}
	if v, ok := scalarValue(xml, "hdrgm:HDRCapacityMin"); ok {
		m.HDRCapacityMin = exp2f(v)
	}
	if v, ok := scalarValue(xml, "hdrgm:HDRCapacityMax"); ok {
		m.HDRCapacityMax = exp2f(v)
	}
}

func channelValues(xml, tag string) ([3]float32, bool) {
	if seq := seqValues(xml, tag); len(seq) > 0 {
		return broadcast(seq), true
	}
	if s, ok := textValue(xml, tag); ok {
		return broadcast(splitValues(s)), true
	}
	return [3]float32{}, false
}

func scalarValue(xml, tag string) (float32, bool) {
	values := seqValues(xml, tag)
	if len(values) == 0 {
		if s, ok := textValue(xml, tag); ok {
			values = splitValues(s)
		}
	}
	if len(values) == 0 {
		return 0, false
	}
	return values[0], true
}

// seqValues returns the parseable rdf:li values inside <tag>...</tag>.
func seqValues(xml, tag string) []float32 {
	content, ok := elementContent(xml, tag)
	if !ok {
		return nil
	}
	var out []float32
	for _, m := range reSeqItem.FindAllStringSubmatch(content, -1) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(m[1]), 32); err == nil {
			out = append(out, float32(v))
		}
	}
	return out
}

// textValue returns the value of tag="..." or, failing that, the trimmed body of <tag>...</tag>.
func textValue(xml, tag string) (string, bool) {
	prefix := tag + `="`
	if i := strings.Index(xml, prefix); i >= 0 {
		rest := xml[i+len(prefix):]
		if j := strings.IndexByte(rest, '"'); j >= 0 {
			return rest[:j], true
		}
	}
	if content, ok := elementContent(xml, tag); ok {
		return strings.TrimSpace(content), true
	}
	return "", false
}

func elementContent(xml, tag string) (string, bool) {
	open, closing := "<"+tag+">", "</"+tag+">"
	i := strings.Index(xml, open)
	if i < 0 {
		return "", false
	}
	rest := xml[i+len(open):]
	j := strings.Index(rest, closing)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

func splitValues(s string) []float32 {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]float32, 0, len(fields))
	for _, f := range fields {
		if v, err := strconv.ParseFloat(f, 32); err == nil {
			out = append(out, float32(v))
		}
	}
	return out
}

// broadcast maps 0 values to zeros, 1 value to every channel, 2 values to the
// first two channels and 3 or more to their first three.
func broadcast(v []float32) [3]float32 {
	switch len(v) {
	case 0:
		return [3]float32{}
	case 1:
		return [3]float32{v[0], v[0], v[0]}
	case 2:
		return [3]float32{v[0], v[1], 0}
	default:
		return [3]float32{v[0], v[1], v[2]}
	}
}

func exp2All(v [3]float32) [3]float32 {
	return [3]float32{exp2f(v[0]), exp2f(v[1]), exp2f(v[2])}
}

func log2All(v [3]float32) [3]float32 {
	return [3]float32{log2f(v[0]), log2f(v[1]), log2f(v[2])}
}

func formatXMPValue(v [3]float32, single bool) string {
	if single {
		return fmt.Sprintf("%.6f", v[0])
	}
	return fmt.Sprintf("%.6f, %.6f, %.6f", v[0], v[1], v[2])
}

// formatXMPSeq renders a per-channel tag as an rdf:Seq element.
func formatXMPSeq(tag string, v [3]float32) string {
	return fmt.Sprintf(`
        <hdrgm:%[1]s>
          <rdf:Seq>
            <rdf:li>%.6[2]f</rdf:li>
            <rdf:li>%.6[3]f</rdf:li>
            <rdf:li>%.6[4]f</rdf:li>
          </rdf:Seq>
        </hdrgm:%[1]s>`, tag, v[0], v[1], v[2])
}

type xmpFields struct {
	// attrs holds single-channel tags, placed inside the rdf:Description start tag.
	attrs string
	// elems holds per-channel rdf:Seq tags, placed in the rdf:Description body.
	elems                    string
	offsetSDR, offsetHDR     string
	capacityMin, capacityMax float32
}

func newXMPFields(m *GainMapMetadata) xmpFields {
	single := m.IsSingleChannel()
	f := xmpFields{
		offsetSDR:   formatXMPValue(m.OffsetSDR, single),
		offsetHDR:   formatXMPValue(m.OffsetHDR, single),
		capacityMin: log2f(m.HDRCapacityMin),
		capacityMax: log2f(m.HDRCapacityMax),
	}
	tags := []struct {
		name   string
		values [3]float32
	}{
		{"GainMapMin", log2All(m.MinContentBoost)},
		{"GainMapMax", log2All(m.MaxContentBoost)},
		{"Gamma", m.Gamma},
	}
	var attrs, elems strings.Builder
	for _, t := range tags {
		if single {
			fmt.Fprintf(&attrs, "\n        hdrgm:%s=\"%.6f\"", t.name, t.values[0])
		} else {
			elems.WriteString(formatXMPSeq(t.name, t.values))
		}
	}
	f.attrs, f.elems = attrs.String(), elems.String()
	return f
}

// GeneratePrimaryXMP renders the primary image XMP with a Container:Directory
// that records the exact byte length of the gain map JPEG.
func GeneratePrimaryXMP(m *GainMapMetadata, gainmapLength int) string {
	f := newXMPFields(m)
	return fmt.Sprintf(`<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="Adobe XMP Core">
  <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
    <rdf:Description rdf:about=""
        xmlns:hdrgm="%s"
        xmlns:Container="http://ns.google.com/photos/1.0/container/"
        xmlns:Item="http://ns.google.com/photos/1.0/container/item/"
        hdrgm:Version="1.0"
        hdrgm:OffsetSDR="%s"
        hdrgm:OffsetHDR="%s"
        hdrgm:HDRCapacityMin="%.6f"
        hdrgm:HDRCapacityMax="%.6f"
        hdrgm:BaseRenditionIsHDR="False"%s>%s
      <Container:Directory>
        <rdf:Seq>
          <rdf:li rdf:parseType="Resource">
            <Container:Item
                Item:Semantic="Primary"
                Item:Mime="image/jpeg"/>
          </rdf:li>
          <rdf:li rdf:parseType="Resource">
            <Container:Item
                Item:Semantic="GainMap"
                Item:Mime="image/jpeg"
                Item:Length="%d"/>
          </rdf:li>
        </rdf:Seq>
      </Container:Directory>
    </rdf:Description>
  </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`, hdrgmNamespace, f.offsetSDR, f.offsetHDR, f.capacityMin, f.capacityMax,
		f.attrs, f.elems, gainmapLength)
}

// GenerateGainmapXMP renders the XMP embedded in the gain map JPEG itself.
func GenerateGainmapXMP(m *GainMapMetadata) string {
	f := newXMPFields(m)
	return fmt.Sprintf(`<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="Adobe XMP Core">
  <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
    <rdf:Description rdf:about=""
        xmlns:hdrgm="%s"
        hdrgm:Version="1.0"
        hdrgm:BaseRenditionIsHDR="False"
        hdrgm:HDRCapacityMin="%.6f"
        hdrgm:HDRCapacityMax="%.6f"
        hdrgm:OffsetSDR="%s"
        hdrgm:OffsetHDR="%s"%s>%s
    </rdf:Description>
  </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`, hdrgmNamespace, f.capacityMin, f.capacityMax, f.offsetSDR, f.offsetHDR,
		f.attrs, f.elems)
}
