package uhdr

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reVersion   = regexp.MustCompile(`hdrgm:Version="([^"]+)"`)
	reBaseIsHDR = regexp.MustCompile(`hdrgm:BaseRenditionIsHDR="([^"]+)"`)
	reSeqItem   = regexp.MustCompile(`(?s)<rdf:li>(.*?)</rdf:li>`)
)

type xmpField struct {
	seq  *regexp.Regexp
	attr *regexp.Regexp
	elem *regexp.Regexp
}

func newXMPField(name string) xmpField {
	q := regexp.QuoteMeta("hdrgm:" + name)
	return xmpField{
		seq:  regexp.MustCompile(`(?s)<` + q + `>\s*<rdf:Seq>(.*?)</rdf:Seq>\s*</` + q + `>`),
		attr: regexp.MustCompile(q + `="([^"]+)"`),
		elem: regexp.MustCompile(`<` + q + `>\s*([^<]+?)\s*</` + q + `>`),
	}
}

var (
	fieldGainMapMin = newXMPField("GainMapMin")
	fieldGainMapMax = newXMPField("GainMapMax")
	fieldGamma      = newXMPField("Gamma")
	fieldOffsetSDR  = newXMPField("OffsetSDR")
	fieldOffsetHDR  = newXMPField("OffsetHDR")
	fieldHDRCapMin  = newXMPField("HDRCapacityMin")
	fieldHDRCapMax  = newXMPField("HDRCapacityMax")
)

// values returns the per-channel values of a field. The rdf:Seq form is
// tried first, then the attribute, then a plain element body.
func (f xmpField) values(xml string) ([]float32, bool, error) {
	var items []string
	if m := f.seq.FindStringSubmatch(xml); len(m) == 2 {
		for _, li := range reSeqItem.FindAllStringSubmatch(m[1], 3) {
			items = append(items, li[1])
		}
	} else if m := f.attr.FindStringSubmatch(xml); len(m) == 2 {
		items = strings.Split(m[1], ",")
	} else if m := f.elem.FindStringSubmatch(xml); len(m) == 2 {
		items = strings.Split(m[1], ",")
	}
	if len(items) == 0 {
		return nil, false, nil
	}
	out := make([]float32, 0, 3)
	for _, it := range items {
		v, err := strconv.ParseFloat(strings.TrimSpace(it), 32)
		if err != nil {
			return nil, true, fmt.Errorf("xmp value %q: %w", it, err)
		}
		out = append(out, float32(v))
		if len(out) == 3 {
			break
		}
	}
	return out, true, nil
}

// ParseXMP parses hdrgm gain map metadata from an XMP packet.
// The packet may carry the XMP APP1 signature.
func ParseXMP(packet []byte) (*Metadata, error) {
	xml := strings.TrimPrefix(string(packet), xmpSignatureString)
	if xml == "" {
		return nil, errors.New("xmp block empty")
	}

	meta := &Metadata{Version: jpegrVersion, UseBaseCG: true}
	meta.MinContentBoost = [3]float32{1, 1, 1}
	meta.MaxContentBoost = [3]float32{1, 1, 1}
	meta.Gamma = [3]float32{1, 1, 1}
	meta.OffsetSDR = [3]float32{1.0 / 64.0, 1.0 / 64.0, 1.0 / 64.0}
	meta.OffsetHDR = [3]float32{1.0 / 64.0, 1.0 / 64.0, 1.0 / 64.0}
	meta.HDRCapacityMin = 1
	meta.HDRCapacityMax = 1

	if m := reVersion.FindStringSubmatch(xml); len(m) == 2 {
		meta.Version = m[1]
	} else {
		return nil, errors.New("xmp missing version")
	}

	set := func(f xmpField, dst *[3]float32, log bool, required string) error {
		vals, ok, err := f.values(xml)
		if err != nil {
			return err
		}
		if !ok {
			if required != "" {
				return errors.New("xmp missing " + required)
			}
			return nil
		}
		for i := 0; i < 3; i++ {
			v := vals[len(vals)-1]
			if i < len(vals) {
				v = vals[i]
			}
			if log {
				v = exp2f(v)
			}
			dst[i] = v
		}
		return nil
	}

	var capMin, capMax [3]float32
	for _, s := range []struct {
		f        xmpField
		dst      *[3]float32
		log      bool
		required string
	}{
		{fieldGainMapMax, &meta.MaxContentBoost, true, "GainMapMax"},
		{fieldHDRCapMax, &capMax, true, "HDRCapacityMax"},
		{fieldGainMapMin, &meta.MinContentBoost, true, ""},
		{fieldGamma, &meta.Gamma, false, ""},
		{fieldOffsetSDR, &meta.OffsetSDR, false, ""},
		{fieldOffsetHDR, &meta.OffsetHDR, false, ""},
		{fieldHDRCapMin, &capMin, true, ""},
	} {
		if err := set(s.f, s.dst, s.log, s.required); err != nil {
			return nil, err
		}
	}
	meta.HDRCapacityMax = capMax[0]
	if capMin[0] != 0 {
		meta.HDRCapacityMin = capMin[0]
	}

	if m := reBaseIsHDR.FindStringSubmatch(xml); len(m) == 2 && m[1] == "True" {
		return nil, errors.New("base rendition HDR not supported")
	}
	return meta, nil
}

// formatXMP writes metadata as attributes; multi-channel values are comma separated.
func formatXMP(meta *Metadata, gainmapLength int, primary bool) string {
	list := func(v [3]float32, log bool) string {
		if log {
			v = [3]float32{log2f(v[0]), log2f(v[1]), log2f(v[2])}
		}
		if v[0] == v[1] && v[1] == v[2] {
			return strconv.FormatFloat(float64(v[0]), 'f', 6, 32)
		}
		parts := make([]string, 3)
		for i := range v {
			parts[i] = strconv.FormatFloat(float64(v[i]), 'f', 6, 32)
		}
		return strings.Join(parts, ",")
	}

	var b strings.Builder
	b.WriteString(`<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="tilesplit">`)
	b.WriteString(`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">`)
	b.WriteString(`<rdf:Description rdf:about="" xmlns:hdrgm="http://ns.adobe.com/hdr-gain-map/1.0/"`)
	if primary {
		b.WriteString(` xmlns:Container="http://ns.google.com/photos/1.0/container/"`)
		b.WriteString(` xmlns:Item="http://ns.google.com/photos/1.0/container/item/"`)
	}
	fmt.Fprintf(&b, ` hdrgm:Version="%s"`, meta.Version)
	fmt.Fprintf(&b, ` hdrgm:GainMapMin="%s"`, list(meta.MinContentBoost, true))
	fmt.Fprintf(&b, ` hdrgm:GainMapMax="%s"`, list(meta.MaxContentBoost, true))
	fmt.Fprintf(&b, ` hdrgm:Gamma="%s"`, list(meta.Gamma, false))
	fmt.Fprintf(&b, ` hdrgm:OffsetSDR="%s"`, list(meta.OffsetSDR, false))
	fmt.Fprintf(&b, ` hdrgm:OffsetHDR="%s"`, list(meta.OffsetHDR, false))
	fmt.Fprintf(&b, ` hdrgm:HDRCapacityMin="%.6f"`, log2f(meta.HDRCapacityMin))
	fmt.Fprintf(&b, ` hdrgm:HDRCapacityMax="%.6f"`, log2f(meta.HDRCapacityMax))
	b.WriteString(` hdrgm:BaseRenditionIsHDR="False">`)
	if primary {
		b.WriteString(`<Container:Directory><rdf:Seq>`)
		b.WriteString(`<rdf:li rdf:parseType="Resource"><Container:Item Item:Semantic="Primary" Item:Mime="image/jpeg"/></rdf:li>`)
		fmt.Fprintf(&b, `<rdf:li rdf:parseType="Resource"><Container:Item Item:Semantic="GainMap" Item:Mime="image/jpeg" Item:Length="%d"/></rdf:li>`, gainmapLength)
		b.WriteString(`</rdf:Seq></Container:Directory>`)
	}
	b.WriteString(`</rdf:Description></rdf:RDF></x:xmpmeta>`)
	return b.String()
}
