package config

const (
	defaultOutputDirName = "comp"
	defaultCacheDir      = "~/.cache/vopt"
	defaultFFmpeg        = "ffmpeg"
	defaultFFprobe       = "ffprobe"
	defaultLogFormat     = "auto"
	defaultLogLevel      = "info"
)

func defaultExtensions() []string {
	return []string{
		".mp4", ".mov", ".mkv", ".avi", ".m4v",
		".webm", ".wmv", ".flv", ".mpg", ".mpeg",
		".mts", ".m2ts", ".3gp",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDirName: defaultOutputDirName,
			CacheDir:      defaultCacheDir,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
		Probe: Probe{
			SkipOrientation: false,
			CacheEnabled:    true,
		},
		Scan: Scan{
			Extensions: defaultExtensions(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
