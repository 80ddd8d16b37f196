package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings read from the environment.
type Config struct {
	// Telegram
	TelegramBotToken string

	// OpenRouter
	OpenRouterAPIKey string
	LLMModel         string
	SystemPromptFile string

	// ChromaDB
	ChromaHost       string
	ChromaPort       int
	ChromaTenant     string
	ChromaDatabase   string
	ChromaCollection string

	// Embedding microservice
	EmbeddingServiceURL string

	// Catalog
	ServicesFile string

	// Ops HTTP server
	HTTPPort int

	LogLevel string
}

// Load reads configuration from a .env file (if present) and the process
// environment. It fails when a required secret is missing.
func Load(logger *log.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Println("No .env file found, using process environment")
	}

	cfg := &Config{
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		OpenRouterAPIKey:    os.Getenv("OPENROUTER_API_KEY"),
		LLMModel:            getEnv("LLM_MODEL", ""),
		SystemPromptFile:    getEnv("SYSTEM_PROMPT_FILE", "data/system_prompt.txt"),
		ChromaHost:          getEnv("CHROMA_HOST", "localhost"),
		ChromaPort:          getEnvInt("CHROMA_PORT", 8000),
		ChromaTenant:        getEnv("CHROMA_TENANT", "default_tenant"),
		ChromaDatabase:      getEnv("CHROMA_DATABASE", "default_database"),
		ChromaCollection:    getEnv("CHROMA_COLLECTION", "services_catalog"),
		EmbeddingServiceURL: getEnv("EMBEDDING_SERVICE_URL", "http://localhost:8001"),
		ServicesFile:        getEnv("SERVICES_FILE", "doc/services_knowledge_base.json"),
		HTTPPort:            getEnvInt("HTTP_PORT", 8080),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}

	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is not set")
	}

	return cfg, nil
}

// ChromaTimeout is the request timeout for the vector store client.
func (c *Config) ChromaTimeout() time.Duration {
	return 30 * time.Second
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
