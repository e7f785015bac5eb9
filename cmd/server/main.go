package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"license-classifier/internal/ai"
	"license-classifier/internal/api"
)

func main() {
	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	aiCfg := ai.Config{
		APIKey:  os.Getenv("GROQ_API_KEY"),
		Model:   os.Getenv("GROQ_MODEL"),
		BaseURL: os.Getenv("GROQ_BASE_URL"),
	}
	if temp := os.Getenv("GROQ_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			aiCfg.Temperature = v
		}
	}
	if maxTokens := os.Getenv("GROQ_MAX_TOKENS"); maxTokens != "" {
		if v, err := strconv.Atoi(maxTokens); err == nil {
			aiCfg.MaxTokens = v
		}
	}
	if timeout := os.Getenv("GROQ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			aiCfg.Timeout = d
		}
	}

	workers := 0
	if v := strings.TrimSpace(os.Getenv("CLASSIFY_WORKERS")); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			workers = val
		}
	}

	var allowedOrigins []string
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins = append(allowedOrigins, origin)
			}
		}
	}

	cfg := api.Config{
		DBPath:         filepath.Join(dataDir, "licenses.db"),
		AIConfig:       aiCfg,
		FallbackModel:  strings.TrimSpace(os.Getenv("GROQ_FALLBACK_MODEL")),
		AllowedOrigins: allowedOrigins,
		Workers:        workers,
	}
	if override := strings.TrimSpace(os.Getenv("LICENSE_DB_PATH")); override != "" {
		cfg.DBPath = override
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}

	router := server.Router()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	logrus.Infof("starting license-classifier backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
