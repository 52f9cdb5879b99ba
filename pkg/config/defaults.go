package config

import "time"

const (
	defaultBinary          = "ffmpeg"
	defaultHost            = "127.0.0.1"
	defaultPort            = 8080
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultTokenTTL        = 24 * time.Hour
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultS3Region        = "us-east-1"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		FFmpeg: FFmpeg{
			Binary:     defaultBinary,
			HideBanner: true,
		},
		Server: Server{
			Host:            defaultHost,
			Port:            defaultPort,
			ReadTimeout:     Duration{defaultReadTimeout},
			WriteTimeout:    Duration{defaultWriteTimeout},
			IdleTimeout:     Duration{defaultIdleTimeout},
			ShutdownTimeout: Duration{defaultShutdownTimeout},
		},
		Auth: Auth{
			TokenTTL: Duration{defaultTokenTTL},
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Storage: Storage{
			S3Region: defaultS3Region,
		},
	}
}
