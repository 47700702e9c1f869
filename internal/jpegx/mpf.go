package jpegx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	mpfNumPictures = 2
	mpfTagCount    = 3
	mpfTagSize     = 12

	mpfTypeLong      = 0x4
	mpfTypeUndefined = 0x7

	mpfVersionTag          = 0xB000
	mpfVersionCount        = 4
	mpfNumberOfImagesTag   = 0xB001
	mpfNumberOfImagesCount = 1
	mpfEntryTag            = 0xB002
	mpfEntrySize           = 16

	mpfAttrFormatJpeg  = 0x0000000
	mpfAttrTypePrimary = 0x030000

	// MPFHeaderOffset is the distance from the APP2 marker to the embedded TIFF
	// header: FF E2, the length field and "MPF\0".
	MPFHeaderOffset = 8
)

var (
	mpfBigEndian = []byte{0x4D, 0x4D, 0x00, 0x2A}
	mpfVersion   = []byte{'0', '1', '0', '0'}
)

// MPFImage is one MP entry of a parsed MPF directory.
type MPFImage struct {
	Attribute uint32
	Size      uint32
	// Offset is relative to the TIFF header; zero for the primary image.
	Offset uint32
}

// BuildMPF builds the complete APP2 MPF marker for a two image container.
//
// primarySize is the final size of the primary image including this marker,
// markerOffset is the position of the marker within the primary image.
// The gain map offset is stored relative to the TIFF header that follows "MPF\0".
func BuildMPF(primarySize, gainmapSize uint64, markerOffset int) ([]byte, error) {
	if markerOffset < 0 {
		return nil, fmt.Errorf("mpf marker offset %d is negative", markerOffset)
	}
	if primarySize > math.MaxUint32 || gainmapSize > math.MaxUint32 {
		return nil, fmt.Errorf("mpf sizes exceed 32 bits: primary %d, gain map %d", primarySize, gainmapSize)
	}
	tiffHeader := uint64(markerOffset) + MPFHeaderOffset
	if primarySize < tiffHeader {
		return nil, fmt.Errorf("mpf primary size %d precedes its own header at %d", primarySize, tiffHeader)
	}
	relative := primarySize - tiffHeader

	data := make([]byte, 0, 8+2+mpfTagCount*mpfTagSize+4+mpfNumPictures*mpfEntrySize)
	putU16 := func(v uint16) { data = binary.BigEndian.AppendUint16(data, v) }
	putU32 := func(v uint32) { data = binary.BigEndian.AppendUint32(data, v) }

	data = append(data, mpfBigEndian...)
	putU32(8) // IFD offset

	putU16(mpfTagCount)

	putU16(mpfVersionTag)
	putU16(mpfTypeUndefined)
	putU32(mpfVersionCount)
	data = append(data, mpfVersion...)

	putU16(mpfNumberOfImagesTag)
	putU16(mpfTypeLong)
	putU32(mpfNumberOfImagesCount)
	putU32(mpfNumPictures)

	putU16(mpfEntryTag)
	putU16(mpfTypeUndefined)
	putU32(mpfEntrySize * mpfNumPictures)
	// Entries follow the IFD: header, tag count, tags, next IFD offset.
	putU32(uint32(8 + 2 + mpfTagCount*mpfTagSize + 4))

	putU32(0) // next IFD

	putU32(mpfAttrFormatJpeg | mpfAttrTypePrimary)
	putU32(uint32(primarySize))
	putU32(0)
	putU32(0)

	putU32(mpfAttrFormatJpeg)
	putU32(uint32(gainmapSize))
	putU32(uint32(relative))
	putU32(0)

	payloadLen := 2 + len(MPFSignature) + len(data)
	marker := make([]byte, 0, 2+payloadLen)
	marker = append(marker, MarkerStart, MarkerAPP2, byte(payloadLen>>8), byte(payloadLen))
	marker = append(marker, MPFSignature...)
	return append(marker, data...), nil
}

// ParseMPF parses an APP2 MPF payload, signature included.
func ParseMPF(payload []byte) ([]MPFImage, error) {
	if len(payload) < len(MPFSignature)+8 || !bytes.HasPrefix(payload, MPFSignature) {
		return nil, errors.New("mpf signature missing")
	}
	tiff := payload[len(MPFSignature):]
	var order binary.ByteOrder
	switch {
	case tiff[0] == 0x4D && tiff[1] == 0x4D:
		order = binary.BigEndian
	case tiff[0] == 0x49 && tiff[1] == 0x49:
		order = binary.LittleEndian
	default:
		return nil, errors.New("mpf endian invalid")
	}
	if order.Uint16(tiff[2:4]) != 0x002A {
		return nil, errors.New("mpf tiff magic invalid")
	}
	ifdPos := int(order.Uint32(tiff[4:8]))
	if ifdPos < 8 || ifdPos+2 > len(tiff) {
		return nil, errors.New("mpf ifd offset invalid")
	}
	tagCount := int(order.Uint16(tiff[ifdPos:]))
	ifdPos += 2
	entryOffset, entryCount := -1, 0
	for i := 0; i < tagCount; i++ {
		if ifdPos+mpfTagSize > len(tiff) {
			return nil, errors.New("mpf ifd truncated")
		}
		tag := order.Uint16(tiff[ifdPos:])
		count := order.Uint32(tiff[ifdPos+4:])
		value := order.Uint32(tiff[ifdPos+8:])
		if tag == mpfEntryTag && count >= mpfEntrySize {
			entryOffset = int(value)
			entryCount = int(count / mpfEntrySize)
			break
		}
		ifdPos += mpfTagSize
	}
	if entryOffset < 0 || entryOffset+entryCount*mpfEntrySize > len(tiff) {
		return nil, errors.New("mpf entry offset invalid")
	}
	images := make([]MPFImage, 0, entryCount)
	for i := 0; i < entryCount; i++ {
		e := tiff[entryOffset+i*mpfEntrySize:]
		images = append(images, MPFImage{
			Attribute: order.Uint32(e[0:4]),
			Size:      order.Uint32(e[4:8]),
			Offset:    order.Uint32(e[8:12]),
		})
	}
	return images, nil
}

// LocateMPF finds the MPF directory of data and returns the nominal absolute
// [start, end) range of every listed image. Ranges are not validated.
func LocateMPF(data []byte) ([][2]int, error) {
	segs, err := HeaderSegments(data)
	if err != nil {
		return nil, err
	}
	for _, s := range segs {
		if s.Marker != MarkerAPP2 || !bytes.HasPrefix(s.Payload, MPFSignature) {
			continue
		}
		images, err := ParseMPF(s.Payload)
		if err != nil {
			return nil, err
		}
		tiffHeader := s.Offset + MPFHeaderOffset
		ranges := make([][2]int, 0, len(images))
		for i, img := range images {
			start := 0
			if i > 0 || img.Offset != 0 {
				start = tiffHeader + int(img.Offset)
			}
			ranges = append(ranges, [2]int{start, start + int(img.Size)})
		}
		return ranges, nil
	}
	return nil, errors.New("mpf segment not found")
}
