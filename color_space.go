package tilesplit

import "bytes"

// gamutFromICC guesses the color gamut from the description strings of an ICC profile.
func gamutFromICC(profile []byte) ColorGamut {
	if len(profile) == 0 {
		return GamutBT709
	}
	lower := bytes.ToLower(profile)
	switch {
	case bytes.Contains(lower, []byte("display p3")) || bytes.Contains(lower, []byte("dci-p3")):
		return GamutDisplayP3
	case bytes.Contains(lower, []byte("2020")) || bytes.Contains(lower, []byte("2100")):
		return GamutBT2100
	default:
		return GamutBT709
	}
}

// luminanceCoefficients returns the R, G and B luma weights of a gamut.
func luminanceCoefficients(g ColorGamut) (float32, float32, float32) {
	switch g {
	case GamutDisplayP3:
		return 0.2289, 0.6917, 0.0793
	case GamutBT2100:
		return 0.2627, 0.6780, 0.0593
	default:
		return 0.2126, 0.7152, 0.0722
	}
}

func luminance(r, g, b uint8, gamut ColorGamut) uint8 {
	lr, lg, lb := luminanceCoefficients(gamut)
	v := lr*float32(r) + lg*float32(g) + lb*float32(b)
	return uint8(min(max(v, 0), 255))
}
