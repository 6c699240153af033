package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port                 int
	DatabaseURL          string
	LogLevel             string
	AuthURL              string
	OpenAIAPIKey         string
	OpenAIModel          string
	BackboardAPIKey      string
	BackboardAPIURL      string
	BackboardLLMProvider string
	BackboardModel       string
	NatsURL              string
	NatsToken            string
}

func Load() Config {
	return Config{
		Port:                 envInt("PORT", 8080),
		DatabaseURL:          envStr("DATABASE_URL", ""),
		LogLevel:             envStr("LOG_LEVEL", "info"),
		AuthURL:              envStr("AUTH_URL", "http://localhost:3000"),
		OpenAIAPIKey:         envStr("OPENAI_API_KEY", ""),
		OpenAIModel:          envStr("OPENAI_MODEL", "gpt-4o-mini"),
		BackboardAPIKey:      envStr("BACKBOARD_API_KEY", ""),
		BackboardAPIURL:      envStr("BACKBOARD_API_URL", ""),
		BackboardLLMProvider: envStr("BACKBOARD_LLM_PROVIDER", "openai"),
		BackboardModel:       envStr("BACKBOARD_MODEL", "gpt-4o"),
		NatsURL:              envStr("NATS_URL", ""),
		NatsToken:            envStr("NATS_TOKEN", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
