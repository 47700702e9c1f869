package uhdr

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/vearutop/tilesplit/internal/jpegx"
)

var hdrgmPrefix = []byte("hdrgm:")

// Detect streams r and reports whether a second JPEG follows the primary
// image and carries hdrgm XMP or an ISO 21496-1 block before its first scan.
// Only the segment headers are buffered; entropy-coded data is skipped.
// Truncated input reports false without an error.
func Detect(r io.Reader) (bool, error) {
	s := markerStream{r: bufio.NewReader(r)}
	found, err := s.detect()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return false, nil
	}
	return found, err
}

type markerStream struct {
	r *bufio.Reader
}

func (s markerStream) detect() (bool, error) {
	if err := s.seekSOI(); err != nil {
		return false, err
	}
	if err := s.skipImage(); err != nil {
		return false, err
	}
	if err := s.seekSOI(); err != nil {
		return false, err
	}
	return s.headerHasGainmapMetadata()
}

// seekSOI consumes bytes up to and including the next SOI marker.
func (s markerStream) seekSOI() error {
	var prev byte
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return err
		}
		if prev == jpegx.MarkerStart && b == jpegx.MarkerSOI {
			return nil
		}
		prev = b
	}
}

// next returns the next marker code, skipping fill bytes.
func (s markerStream) next() (byte, error) {
	b, err := s.r.ReadByte()
	for err == nil && b != jpegx.MarkerStart {
		b, err = s.r.ReadByte()
	}
	for err == nil && b == jpegx.MarkerStart {
		b, err = s.r.ReadByte()
	}
	return b, err
}

func standalone(marker byte) bool {
	return marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7)
}

func (s markerStream) payloadLength() (int, error) {
	var buf [2]byte
	if _, err := io.ReadFull(s.r, buf[:]); err != nil {
		return 0, err
	}
	n := int(binary.BigEndian.Uint16(buf[:]))
	if n < 2 {
		return 0, errors.New("invalid segment length")
	}
	return n - 2, nil
}

func (s markerStream) skipSegment() error {
	n, err := s.payloadLength()
	if err != nil {
		return err
	}
	_, err = s.r.Discard(n)
	return err
}

func (s markerStream) readSegment() ([]byte, error) {
	n, err := s.payloadLength()
	if err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	_, err = io.ReadFull(s.r, payload)
	return payload, err
}

// skipImage consumes the current image up to and including its EOI.
func (s markerStream) skipImage() error {
	for {
		marker, err := s.next()
		if err != nil {
			return err
		}
		switch {
		case marker == jpegx.MarkerEOI:
			return nil
		case standalone(marker):
		case marker == jpegx.MarkerSOS:
			if err := s.skipSegment(); err != nil {
				return err
			}
			return s.skipToEOI()
		default:
			if err := s.skipSegment(); err != nil {
				return err
			}
		}
	}
}

// skipToEOI discards entropy-coded data and any later scans until EOI.
func (s markerStream) skipToEOI() error {
	for {
		marker, err := s.next()
		if err != nil {
			return err
		}
		if marker == jpegx.MarkerEOI {
			return nil
		}
	}
}

func (s markerStream) headerHasGainmapMetadata() (bool, error) {
	for {
		marker, err := s.next()
		if err != nil {
			return false, err
		}
		switch {
		case marker == jpegx.MarkerSOS || marker == jpegx.MarkerEOI:
			return false, nil
		case standalone(marker):
		case marker == jpegx.MarkerAPP1 || marker == jpegx.MarkerAPP2:
			payload, err := s.readSegment()
			if err != nil {
				return false, err
			}
			if marker == jpegx.MarkerAPP1 && bytes.HasPrefix(payload, jpegx.XMPSignature) && bytes.Contains(payload, hdrgmPrefix) {
				return true, nil
			}
			if marker == jpegx.MarkerAPP2 && bytes.HasPrefix(payload, jpegx.ISOSignature) {
				return true, nil
			}
		default:
			if err := s.skipSegment(); err != nil {
				return false, err
			}
		}
	}
}
