package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr            string
	DataDir         string
	DatabaseURL     string
	TokenSecret     string
	SessionTTL      time.Duration
	CORSOrigin      string
	LockDisplayName bool
	// Search - optional, local scan fallback when empty
	MeiliURL       string
	MeiliMasterKey string
	// Analysis collaborator - optional, endpoint of the text-generation service
	AnalysisURL string
	// Redis - optional, in-memory session store when empty
	RedisURL string
	// Object storage - optional, export archiving disabled when empty
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func Load() Config {
	return Config{
		Addr:            getenv("API_ADDR", ":8788"),
		DataDir:         getenv("GANTRY_DATA_DIR", "./data"),
		DatabaseURL:     getenv("DATABASE_URL", ""),
		TokenSecret:     getenv("GANTRY_TOKEN_SECRET", "gantry-dev-secret"),
		SessionTTL:      time.Duration(getenvInt("GANTRY_SESSION_TTL_SECONDS", 43200)) * time.Second,
		CORSOrigin:      getenv("GANTRY_CORS_ORIGIN", "*"),
		LockDisplayName: getenvBool("GANTRY_LOCK_DISPLAY_NAME", false),
		MeiliURL:        getenv("MEILI_URL", ""),
		MeiliMasterKey:  getenv("MEILI_MASTER_KEY", ""),
		AnalysisURL:     getenv("GANTRY_ANALYSIS_URL", ""),
		RedisURL:        getenv("REDIS_URL", ""),
		MinioEndpoint:   getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey:  getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:     getenv("MINIO_BUCKET", "gantry-exports"),
		MinioUseSSL:     getenvBool("MINIO_USE_SSL", false),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
