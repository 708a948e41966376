// Package config loads runtime configuration from the environment, with a
// .env file as an optional local override.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Keys     APIKeys
	Provider ProviderConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
}

type StorageConfig struct {
	// Path is the SQLite database file backing the key-value store.
	// ":memory:" keeps everything ephemeral.
	Path string
}

// APIKeys seeds the key store from the environment on first run. Keys the
// user saves interactively take precedence over these.
type APIKeys struct {
	Gemini      string
	HuggingFace string
	MagicAPI    string
}

type ProviderConfig struct {
	ChatURL   string
	ImageURL  string
	UploadURL string
	VideoURL  string

	TimeoutSeconds      int
	PollIntervalSeconds int
	PollAttempts        int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", ""),
		},
		Storage: StorageConfig{
			Path: getEnv("MINIBOT_DB_PATH", "minibot.db"),
		},
		Keys: APIKeys{
			Gemini:      getEnv("GEMINI_API_KEY", ""),
			HuggingFace: getEnv("HUGGINGFACE_API_KEY", ""),
			MagicAPI:    getEnv("MAGICAPI_API_KEY", ""),
		},
		Provider: ProviderConfig{
			ChatURL:             getEnv("CHAT_API_URL", ""),
			ImageURL:            getEnv("IMAGE_API_URL", ""),
			UploadURL:           getEnv("UPLOAD_API_URL", ""),
			VideoURL:            getEnv("VIDEO_API_URL", ""),
			TimeoutSeconds:      getEnvAsInt("PROVIDER_TIMEOUT_SECONDS", 60),
			PollIntervalSeconds: getEnvAsInt("VIDEO_POLL_INTERVAL_SECONDS", 5),
			PollAttempts:        getEnvAsInt("VIDEO_POLL_ATTEMPTS", 60),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
