package config

const (
	defaultJPEGQuality     = 100
	defaultGainmapQuality  = 100
	defaultFallbackQuality = 95
	defaultLeftSuffix      = "-left"
	defaultRightSuffix     = "-right"
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Output: Output{
			JPEGQuality:     defaultJPEGQuality,
			GainmapQuality:  defaultGainmapQuality,
			FallbackQuality: defaultFallbackQuality,
			LeftSuffix:      defaultLeftSuffix,
			RightSuffix:     defaultRightSuffix,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
