// Package jpegx implements JPEG marker surgery shared by the splitter and the container codec.
package jpegx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// JPEG marker bytes.
const (
	MarkerStart = 0xFF
	MarkerSOI   = 0xD8
	MarkerEOI   = 0xD9
	MarkerSOS   = 0xDA
	MarkerAPP0  = 0xE0
	MarkerAPP1  = 0xE1
	MarkerAPP2  = 0xE2
	MarkerAPP15 = 0xEF
)

// Namespaces of metadata carried in APP segments.
const (
	XMPNamespace = "http://ns.adobe.com/xap/1.0/"
	ISONamespace = "urn:iso:std:iso:ts:21496:-1"
)

// maxSegmentPayload is the largest payload a marker segment can carry: the
// 16-bit length field counts itself.
const maxSegmentPayload = 0xFFFF - 2

// iccChunkSize is the profile chunk that fits one APP2 segment next to its header.
const iccChunkSize = maxSegmentPayload - 14

var (
	XMPSignature = append([]byte(XMPNamespace), 0)
	ISOSignature = append([]byte(ISONamespace), 0)
	ICCSignature = []byte{'I', 'C', 'C', '_', 'P', 'R', 'O', 'F', 'I', 'L', 'E', 0}
	MPFSignature = []byte{'M', 'P', 'F', 0}
)

// ErrNotJPEG is returned when data does not begin with SOI.
var ErrNotJPEG = errors.New("not a JPEG SOI")

// Segment is a marker segment from the JPEG header.
type Segment struct {
	Marker byte
	// Offset is the position of the 0xFF byte that opens the segment.
	Offset  int
	Payload []byte
}

// HasSOI reports whether data starts with a JPEG SOI marker.
func HasSOI(data []byte) bool {
	return len(data) >= 2 && data[0] == MarkerStart && data[1] == MarkerSOI
}

// HeaderSegments walks the marker segments that precede the first scan.
// Payloads alias data.
func HeaderSegments(data []byte) ([]Segment, error) {
	if len(data) < 4 || !HasSOI(data) {
		return nil, ErrNotJPEG
	}
	var segs []Segment
	pos := 2
	for pos+3 < len(data) {
		if data[pos] != MarkerStart {
			pos++
			continue
		}
		for pos < len(data) && data[pos] == MarkerStart {
			pos++
		}
		if pos >= len(data) {
			break
		}
		start := pos - 1
		marker := data[pos]
		pos++
		if marker == MarkerSOS || marker == MarkerEOI {
			break
		}
		if marker >= 0xD0 && marker <= 0xD7 {
			continue
		}
		if pos+1 >= len(data) {
			return nil, errors.New("truncated marker")
		}
		segLen := int(binary.BigEndian.Uint16(data[pos:]))
		if segLen < 2 || pos+segLen > len(data) {
			return nil, errors.New("invalid segment length")
		}
		segs = append(segs, Segment{Marker: marker, Offset: start, Payload: data[pos+2 : pos+segLen]})
		pos += segLen
	}
	return segs, nil
}

// FindXMP returns the XML packet of the first XMP APP1 segment, without its signature.
func FindXMP(segs []Segment) []byte {
	for _, s := range segs {
		if s.Marker == MarkerAPP1 && bytes.HasPrefix(s.Payload, XMPSignature) {
			return s.Payload[len(XMPSignature):]
		}
	}
	return nil
}

// FindISO returns the ISO 21496-1 APP2 payload without its signature.
func FindISO(segs []Segment) []byte {
	for _, s := range segs {
		if s.Marker == MarkerAPP2 && bytes.HasPrefix(s.Payload, ISOSignature) {
			return s.Payload[len(ISOSignature):]
		}
	}
	return nil
}

// CollectICC reassembles an ICC profile from its ICC_PROFILE chunks.
func CollectICC(segs []Segment) []byte {
	type chunk struct {
		seq  int
		data []byte
	}
	var chunks []chunk
	for _, s := range segs {
		p := s.Payload
		// "ICC_PROFILE\0" + seq + total + profile bytes.
		if s.Marker == MarkerAPP2 && len(p) > len(ICCSignature)+2 && bytes.HasPrefix(p, ICCSignature) {
			chunks = append(chunks, chunk{seq: int(p[len(ICCSignature)]), data: p[len(ICCSignature)+2:]})
		}
	}
	if len(chunks) == 0 {
		return nil
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })
	var out []byte
	for _, c := range chunks {
		out = append(out, c.data...)
	}
	return out
}

// ICCPayloads splits an ICC profile into APP2 payloads.
func ICCPayloads(profile []byte) ([][]byte, error) {
	if len(profile) == 0 {
		return nil, nil
	}
	total := (len(profile) + iccChunkSize - 1) / iccChunkSize
	if total > 255 {
		return nil, fmt.Errorf("icc profile too large: %d bytes", len(profile))
	}
	out := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		end := (i + 1) * iccChunkSize
		if end > len(profile) {
			end = len(profile)
		}
		p := make([]byte, 0, len(ICCSignature)+2+end-i*iccChunkSize)
		p = append(p, ICCSignature...)
		p = append(p, byte(i+1), byte(total))
		p = append(p, profile[i*iccChunkSize:end]...)
		out = append(out, p)
	}
	return out, nil
}

// XMPPayload prefixes an XML packet with the XMP signature.
func XMPPayload(xml string) []byte {
	p := make([]byte, 0, len(XMPSignature)+len(xml))
	p = append(p, XMPSignature...)
	return append(p, xml...)
}

// WriteAppSegment writes marker, length and payload.
func WriteAppSegment(out *bytes.Buffer, marker byte, payload []byte) error {
	if len(payload) > maxSegmentPayload {
		return fmt.Errorf("segment payload too large: %d bytes", len(payload))
	}
	length := uint16(len(payload) + 2)
	out.WriteByte(MarkerStart)
	out.WriteByte(marker)
	out.WriteByte(byte(length >> 8))
	out.WriteByte(byte(length))
	out.Write(payload)
	return nil
}

// InsertSegments inserts marker segments at pos and returns a new buffer.
func InsertSegments(data []byte, pos int, marker byte, payloads ...[]byte) ([]byte, error) {
	if !HasSOI(data) {
		return nil, ErrNotJPEG
	}
	if pos < 2 || pos > len(data) {
		return nil, fmt.Errorf("insert position %d out of range", pos)
	}
	var out bytes.Buffer
	out.Grow(len(data) + len(payloads)*4)
	out.Write(data[:pos])
	for _, p := range payloads {
		if err := WriteAppSegment(&out, marker, p); err != nil {
			return nil, err
		}
	}
	out.Write(data[pos:])
	return out.Bytes(), nil
}

// InsertAfterSOI inserts marker segments right after SOI.
func InsertAfterSOI(data []byte, marker byte, payloads ...[]byte) ([]byte, error) {
	return InsertSegments(data, 2, marker, payloads...)
}

// AppInsertPosition returns the offset just past the run of APP0-APP15 segments
// that follows SOI.
func AppInsertPosition(data []byte) (int, error) {
	if len(data) < 4 || !HasSOI(data) {
		return 0, ErrNotJPEG
	}
	pos := 2
	for pos+3 < len(data) {
		if data[pos] != MarkerStart {
			break
		}
		marker := data[pos+1]
		if marker < MarkerAPP0 || marker > MarkerAPP15 {
			break
		}
		length := int(binary.BigEndian.Uint16(data[pos+2:]))
		if length < 2 || pos+2+length > len(data) {
			return 0, errors.New("invalid segment length")
		}
		pos += 2 + length
	}
	return pos, nil
}

// FindJPEGEnd returns the offset just past the EOI of the image starting at start.
func FindJPEGEnd(data []byte, start int) (int, error) {
	if start < 0 || start+1 >= len(data) || data[start] != MarkerStart || data[start+1] != MarkerSOI {
		return 0, ErrNotJPEG
	}
	pos := start + 2
	inScan := false
	for pos+1 < len(data) {
		if !inScan {
			if data[pos] != MarkerStart {
				pos++
				continue
			}
			for pos < len(data) && data[pos] == MarkerStart {
				pos++
			}
			if pos >= len(data) {
				break
			}
			marker := data[pos]
			pos++
			switch {
			case marker == MarkerSOI, marker == 0x01, marker >= 0xD0 && marker <= 0xD7:
				continue
			case marker == MarkerEOI:
				return pos, nil
			}
			if pos+1 >= len(data) {
				return 0, errors.New("truncated marker segment")
			}
			segLen := int(binary.BigEndian.Uint16(data[pos:]))
			if segLen < 2 {
				return 0, errors.New("invalid marker length")
			}
			pos += segLen
			inScan = marker == MarkerSOS
			continue
		}

		if data[pos] != MarkerStart {
			pos++
			continue
		}
		next := data[pos+1]
		switch {
		case next == 0x00, next == MarkerStart, next >= 0xD0 && next <= 0xD7:
			pos++
			if next != MarkerStart {
				pos++
			}
		case next == MarkerEOI:
			return pos + 2, nil
		default:
			// A table or another scan between progressive scans.
			inScan = false
		}
	}
	return 0, errors.New("no EOI found")
}

// ScanJPEGs locates concatenated JPEG images by walking SOI/EOI markers.
func ScanJPEGs(data []byte) [][2]int {
	var ranges [][2]int
	i := 0
	for i+1 < len(data) {
		if data[i] == MarkerStart && data[i+1] == MarkerSOI {
			end, err := FindJPEGEnd(data, i)
			if err != nil {
				break
			}
			ranges = append(ranges, [2]int{i, end})
			i = end
			continue
		}
		i++
	}
	return ranges
}

// IsValidRange reports whether data[start:end] starts with SOI and ends with EOI.
func IsValidRange(data []byte, start, end int) bool {
	if start < 0 || start >= end || end > len(data) || end-start < 4 {
		return false
	}
	return data[start] == MarkerStart && data[start+1] == MarkerSOI &&
		data[end-2] == MarkerStart && data[end-1] == MarkerEOI
}
