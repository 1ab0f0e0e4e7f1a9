package config

const (
	defaultWorkingDir = "~/.local/share/lacquer/work"
	defaultOutputDir  = "~/podcasts"
	defaultLogDir     = "~/.local/share/lacquer/logs"

	defaultTargetIntegratedLUFS = -16.0
	defaultTargetTruePeak       = -1.5
	defaultTargetLoudnessRange  = 11.0
	defaultChunkSeconds         = 300

	defaultWorkers           = 4
	defaultJobTimeoutSeconds = 1800

	defaultOutputFormat  = "mp3"
	defaultOutputBitrate = "128k"
	defaultOutputGenre   = "Podcast"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkingDir: defaultWorkingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Mastering: Mastering{
			TargetIntegratedLUFS: defaultTargetIntegratedLUFS,
			TargetTruePeak:       defaultTargetTruePeak,
			TargetLoudnessRange:  defaultTargetLoudnessRange,
			ChunkSeconds:         defaultChunkSeconds,
			Gate:                 true,
			Clarity:              true,
			Tonal:                true,
			SoftClip:             true,
		},
		Pool: Pool{
			Workers:           defaultWorkers,
			JobTimeoutSeconds: defaultJobTimeoutSeconds,
		},
		Output: Output{
			Format:  defaultOutputFormat,
			Bitrate: defaultOutputBitrate,
			Genre:   defaultOutputGenre,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
