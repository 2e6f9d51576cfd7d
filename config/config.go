package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	// Config -.
	Config struct {
		App     `yaml:"app"`
		Server  `yaml:"server"`
		Log     `yaml:"logger"`
		Model   `yaml:"model"`
		FFmpeg  `yaml:"ffmpeg"`
		Storage `yaml:"storage"`
		S3      `yaml:"s3"`
		OTEL    `yaml:"otel"`
	}

	// App -.
	App struct {
		Name    string `env-required:"true" yaml:"name"    env:"APP_NAME"`
		Version string `env-required:"true" yaml:"version" env:"APP_VERSION"`
	}

	// Server -. A zero ReadTimeout leaves upload bodies unbounded.
	Server struct {
		Port              string        `env-required:"true" yaml:"port"                env:"HTTP_PORT"`
		MaxUploadMB       int64         `env-default:"100"   yaml:"max_upload_mb"       env:"HTTP_MAX_UPLOAD_MB"`
		ReadHeaderTimeout time.Duration `env-default:"10s"   yaml:"read_header_timeout" env:"HTTP_READ_HEADER_TIMEOUT"`
		ReadTimeout       time.Duration `env-default:"0s"    yaml:"read_timeout"        env:"HTTP_READ_TIMEOUT"`
	}

	// Log -.
	Log struct {
		Level string `env-required:"true" yaml:"log_level"   env:"LOG_LEVEL"`
	}

	// Model selects and configures the speech recognition backend.
	Model struct {
		Provider      string `env-default:"whispercpp" yaml:"provider"       env:"MODEL_PROVIDER"`
		Name          string `env-default:"small"      yaml:"name"           env:"MODEL_NAME"`
		Dir           string `env-default:"./models"   yaml:"dir"            env:"MODEL_DIR"`
		DownloadURL   string `env-default:"https://huggingface.co/ggerganov/whisper.cpp/resolve/main" yaml:"download_url" env:"MODEL_DOWNLOAD_URL"`
		S3Bucket      string `yaml:"s3_bucket" env:"MODEL_S3_BUCKET"`
		S3Prefix      string `yaml:"s3_prefix" env:"MODEL_S3_PREFIX"`
		BinaryPath    string `env-default:"whisper-cli" yaml:"binary_path"    env:"WHISPER_BINARY_PATH"`
		Language      string `env-default:"es"          yaml:"language"       env:"MODEL_LANGUAGE"`
		FP16          bool   `env-default:"false"       yaml:"fp16"           env:"MODEL_FP16"`
		MaxConcurrent int64  `env-default:"1"           yaml:"max_concurrent" env:"MODEL_MAX_CONCURRENT"`
		Threads       int    `env-default:"4"           yaml:"threads"        env:"MODEL_THREADS"`
		OpenAI        `yaml:"openai"`
	}

	// OpenAI -.
	OpenAI struct {
		BaseURL   string `yaml:"base_url" env:"OPENAI_BASE_URL"`
		APIKey    string `yaml:"api_key"  env:"OPENAI_API_KEY"`
		ModelName string `env-default:"whisper-1" yaml:"model" env:"OPENAI_MODEL"`
	}

	// FFmpeg -.
	FFmpeg struct {
		BinDir string `env-default:"./ffmpeg/bin" yaml:"bin_dir" env:"FFMPEG_BIN_DIR"`
	}

	// Storage -.
	Storage struct {
		TempDir       string        `yaml:"temp_dir" env:"STORAGE_TEMP_DIR"`
		DefaultSuffix string        `env-default:".mp3" yaml:"default_suffix" env:"STORAGE_DEFAULT_SUFFIX"`
		SweepAfter    time.Duration `env-default:"1h"   yaml:"sweep_after"    env:"STORAGE_SWEEP_AFTER"`
	}

	// S3 -.
	S3 struct {
		Endpoint  string `yaml:"endpoint"   env:"S3_ENDPOINT"`
		Region    string `env-default:"us-east-1" yaml:"region" env:"S3_REGION"`
		AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	}

	// OTEL -.
	OTEL struct {
		Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	}
)

// NewConfig returns app config.
func NewConfig() (*Config, error) {
	return ReadConfig("./config/config.yml")
}

// ReadConfig reads the yaml file at path and applies env overrides on top.
func ReadConfig(path string) (*Config, error) {
	cfg := &Config{}

	err := cleanenv.ReadConfig(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}

// ModelLabel is the model name reported by the status route: the remote
// model for the openai provider, whisper-<name> for local weights.
func (m Model) ModelLabel() string {
	if strings.EqualFold(m.Provider, "openai") && m.OpenAI.ModelName != "" {
		return m.OpenAI.ModelName
	}
	return "whisper-" + m.Name
}
