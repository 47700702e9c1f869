package tilesplit

const (
	aspect16x10     = 16.0 / 10.0
	aspect3x2       = 3.0 / 2.0
	aspectTolerance = 0.01
)

const (
	defaultSDRQuality      = 100
	defaultGainmapQuality  = 100
	defaultFallbackQuality = 95
)

// Thresholds of the no-op gain map signature.
const neutralBoost = 1.001

const hdrgmNamespace = "http://ns.adobe.com/hdr-gain-map/1.0/"
