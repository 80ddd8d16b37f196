package config

import (
	"io"
	"log"
	"testing"
	"time"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func setRequiredEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("OPENROUTER_API_KEY", "test-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TelegramBotToken != "test-token" {
		t.Errorf("Expected token 'test-token', got %s", cfg.TelegramBotToken)
	}
	if cfg.ChromaHost != "localhost" {
		t.Errorf("Expected default chroma host, got %s", cfg.ChromaHost)
	}
	if cfg.ChromaPort != 8000 {
		t.Errorf("Expected default chroma port 8000, got %d", cfg.ChromaPort)
	}
	if cfg.ChromaCollection != "services_catalog" {
		t.Errorf("Expected default collection, got %s", cfg.ChromaCollection)
	}
	if cfg.EmbeddingServiceURL != "http://localhost:8001" {
		t.Errorf("Expected default embedding URL, got %s", cfg.EmbeddingServiceURL)
	}
	if cfg.ServicesFile != "doc/services_knowledge_base.json" {
		t.Errorf("Expected default services file, got %s", cfg.ServicesFile)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("Expected default HTTP port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.ChromaTimeout() != 30*time.Second {
		t.Errorf("Expected 30s chroma timeout, got %v", cfg.ChromaTimeout())
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_MODEL", "custom/model")
	t.Setenv("CHROMA_PORT", "9000")
	t.Setenv("HTTP_PORT", "3000")

	cfg, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLMModel != "custom/model" {
		t.Errorf("Expected model override, got %s", cfg.LLMModel)
	}
	if cfg.ChromaPort != 9000 {
		t.Errorf("Expected chroma port 9000, got %d", cfg.ChromaPort)
	}
	if cfg.HTTPPort != 3000 {
		t.Errorf("Expected HTTP port 3000, got %d", cfg.HTTPPort)
	}
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHROMA_PORT", "not-a-number")

	cfg, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ChromaPort != 8000 {
		t.Errorf("Expected fallback port 8000, got %d", cfg.ChromaPort)
	}
}

func TestLoadMissingTelegramToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("OPENROUTER_API_KEY", "test-key")

	if _, err := Load(testLogger()); err == nil {
		t.Fatal("Expected error for missing TELEGRAM_BOT_TOKEN")
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("OPENROUTER_API_KEY", "")

	if _, err := Load(testLogger()); err == nil {
		t.Fatal("Expected error for missing OPENROUTER_API_KEY")
	}
}
