package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration. Each search provider has one
// credential; a missing credential just means that provider is never
// registered.
type Config struct {
	TavilyAPIKey     string
	ExaAPIKey        string
	PerplexityAPIKey string
	SerpAPIKey       string

	TwitterUsername    string
	TwitterPassword    string
	TwitterEmail       string
	TwitterCookiePath  string
	TwitterAuthTimeout int // seconds to wait for the login handshake before registration moves on

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	DatabaseURL string
	ServerPort  int
}

// Load loads configuration from environment variables.
func Load() Config {
	return Config{
		TavilyAPIKey:     os.Getenv("TAVILY_API_KEY"),
		ExaAPIKey:        os.Getenv("EXA_API_KEY"),
		PerplexityAPIKey: os.Getenv("PERPLEXITY_API_KEY"),
		SerpAPIKey:       os.Getenv("SERPAPI_API_KEY"),

		TwitterUsername:    os.Getenv("TWITTER_USERNAME"),
		TwitterPassword:    os.Getenv("TWITTER_PASSWORD"),
		TwitterEmail:       os.Getenv("TWITTER_EMAIL"),
		TwitterCookiePath:  getEnv("TWITTER_COOKIE_PATH", ".truthseeker/twitter-cookies.db"),
		TwitterAuthTimeout: getEnvInt("TWITTER_AUTH_TIMEOUT_SECONDS", 15),

		LLMBaseURL: getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1/chat/completions"),
		LLMAPIKey:  os.Getenv("LLM_API_KEY"),
		LLMModel:   getEnv("LLM_MODEL", "llama-3.3-70b-versatile"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		ServerPort:  getEnvInt("SERVER_PORT", 3000),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
