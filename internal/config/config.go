package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// MediaPath is the root directory to browse for videos and subtitles
	MediaPath string `yaml:"media_path"`

	// Port is the HTTP listen port (default 8090)
	Port int `yaml:"port"`

	// MkvmergePath is the name or path of the mkvmerge binary (default: "mkvmerge")
	// Resolved against PATH when not absolute
	MkvmergePath string `yaml:"mkvmerge_path"`

	// FFmpegPath is the name or path of the ffmpeg binary (default: "ffmpeg")
	FFmpegPath string `yaml:"ffmpeg_path"`

	// SubtitleLanguage is the language tag applied to merged subtitle tracks (default "eng")
	SubtitleLanguage string `yaml:"subtitle_language"`

	// SubtitleTrackName is the track name applied to merged subtitle tracks (default "English")
	SubtitleTrackName string `yaml:"subtitle_track_name"`

	// LogLevel controls log verbosity: debug, info, warn, error (default "info")
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MediaPath:         "/media",
		Port:              8090,
		MkvmergePath:      "mkvmerge",
		FFmpegPath:        "ffmpeg",
		SubtitleLanguage:  "eng",
		SubtitleTrackName: "English",
		LogLevel:          "info",
	}
}

// Load reads config from a YAML file, applying defaults for missing values
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file - use defaults
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Apply defaults for empty values
	if cfg.Port == 0 {
		cfg.Port = 8090
	}
	if cfg.MkvmergePath == "" {
		cfg.MkvmergePath = "mkvmerge"
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.SubtitleLanguage == "" {
		cfg.SubtitleLanguage = "eng"
	}
	if cfg.SubtitleTrackName == "" {
		cfg.SubtitleTrackName = "English"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Save writes the config to a YAML file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
