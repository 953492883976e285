package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Detector   DetectorConfig
	Match      MatchConfig
	Camera     CameraConfig
	Signatures SignatureConfig
	Photos     PhotosConfig
	Database   DatabaseConfig
}

type DetectorConfig struct {
	URL string `yaml:"url"` // face detection/embedding server base URL
	Dim int    `yaml:"dim"` // embedding dimensionality the server produces
}

type MatchConfig struct {
	// Threshold is the maximum cosine distance accepted as a positive
	// match. Constant for the lifetime of a session.
	Threshold float64 `yaml:"threshold"`
}

type CameraConfig struct {
	Index           int `yaml:"index"`             // device index passed to the capture backend
	FrameIntervalMs int `yaml:"frame_interval_ms"` // minimum delay between processed frames
}

type SignatureConfig struct {
	Path string `yaml:"path"` // signature blob location
}

type PhotosConfig struct {
	Dir string `yaml:"dir"` // directory holding employee photos
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// defaults mirrors the embedded defaults.yaml layout.
type defaults struct {
	Detector   DetectorConfig  `yaml:"detector"`
	Match      MatchConfig     `yaml:"match"`
	Camera     CameraConfig    `yaml:"camera"`
	Signatures SignatureConfig `yaml:"signatures"`
	Photos     PhotosConfig    `yaml:"photos"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envStr reads an environment variable with a fallback.
func envStr(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var def defaults
	if err := yaml.Unmarshal(defaultsYAML, &def); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Detector: DetectorConfig{
			URL: envStr("DETECTOR_URL", def.Detector.URL),
			Dim: envInt("DETECTOR_DIM", def.Detector.Dim),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", def.Match.Threshold),
		},
		Camera: CameraConfig{
			Index:           envInt("CAMERA_INDEX", def.Camera.Index),
			FrameIntervalMs: envInt("CAMERA_FRAME_INTERVAL_MS", def.Camera.FrameIntervalMs),
		},
		Signatures: SignatureConfig{
			Path: envStr("SIGNATURES_PATH", def.Signatures.Path),
		},
		Photos: PhotosConfig{
			Dir: envStr("PHOTOS_DIR", def.Photos.Dir),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
	}
}
