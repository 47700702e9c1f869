package tilesplit

import (
	"math"

	"github.com/vearutop/tilesplit/internal/uhdr"
)

// LooksDefaultOrIncomplete reports whether meta describes a no-op gain map
// or carries non-finite or non-positive gamma or boost values.
func (m *GainMapMetadata) LooksDefaultOrIncomplete() bool {
	neutral := m.HDRCapacityMax <= neutralBoost
	for _, v := range m.MaxContentBoost {
		if v > neutralBoost {
			neutral = false
		}
	}
	if neutral {
		return true
	}
	for i := 0; i < 3; i++ {
		if !positiveFinite(m.Gamma[i]) || !positiveFinite(m.MinContentBoost[i]) || !positiveFinite(m.MaxContentBoost[i]) {
			return true
		}
	}
	return false
}

// IsSingleChannel reports whether every per-channel array holds one broadcast value.
func (m *GainMapMetadata) IsSingleChannel() bool {
	same := func(v [3]float32) bool { return v[0] == v[1] && v[1] == v[2] }
	return same(m.MinContentBoost) && same(m.MaxContentBoost) && same(m.Gamma) &&
		same(m.OffsetSDR) && same(m.OffsetHDR)
}

// neutralMetadata is the no-op gain map: unit boosts, gamma and capacity with
// the customary 1/64 offsets.
func neutralMetadata() GainMapMetadata {
	const offset = 1.0 / 64
	return GainMapMetadata{
		MinContentBoost:   [3]float32{1, 1, 1},
		MaxContentBoost:   [3]float32{1, 1, 1},
		Gamma:             [3]float32{1, 1, 1},
		OffsetSDR:         [3]float32{offset, offset, offset},
		OffsetHDR:         [3]float32{offset, offset, offset},
		HDRCapacityMin:    1,
		HDRCapacityMax:    1,
		UseBaseColorSpace: true,
	}
}

func positiveFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}

func metadataFromUHDR(m *uhdr.Metadata) GainMapMetadata {
	return GainMapMetadata{
		MinContentBoost:   m.MinContentBoost,
		MaxContentBoost:   m.MaxContentBoost,
		Gamma:             m.Gamma,
		OffsetSDR:         m.OffsetSDR,
		OffsetHDR:         m.OffsetHDR,
		HDRCapacityMin:    m.HDRCapacityMin,
		HDRCapacityMax:    m.HDRCapacityMax,
		UseBaseColorSpace: m.UseBaseCG,
	}
}

func log2f(v float32) float32 { return float32(math.Log2(float64(v))) }
func exp2f(v float32) float32 { return float32(math.Exp2(float64(v))) }
