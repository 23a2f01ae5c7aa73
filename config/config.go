package config

import (
	"fmt"
	"os"
)

// Config carries everything the coordination engine needs injected:
// where the Tonight API and socket live, the viewer's session, and which
// event room this process coordinates.
type Config struct {
	APIBaseURL    string
	SocketURL     string
	SessionToken  string
	SessionSecret string
	EventID       string
	JoinRequestID string
	Port          string
	FrontendURL   string
}

// Load reads configuration from the environment. APIBaseURL and EventID
// are mandatory; the socket stays disabled without a SocketURL or a
// session token.
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:    os.Getenv("TONIGHT_API_URL"),
		SocketURL:     os.Getenv("TONIGHT_SOCKET_URL"),
		SessionToken:  os.Getenv("SESSION_TOKEN"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		EventID:       os.Getenv("EVENT_ID"),
		JoinRequestID: os.Getenv("JOIN_REQUEST_ID"),
		Port:          os.Getenv("PORT"),
		FrontendURL:   os.Getenv("FRONTEND_URL"),
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("TONIGHT_API_URL environment variable is required")
	}
	if cfg.EventID == "" {
		return nil, fmt.Errorf("EVENT_ID environment variable is required")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:3000"
	}
	return cfg, nil
}
