package bot

import (
	"io"
	"testing"

	"jokefeed/internal/config"
	"jokefeed/pkg/logger"
)

func init() {
	logger.Init("error", io.Discard)
}

func TestNewBot(t *testing.T) {
	cfg := config.BotConfig{
		Token:     "test-token",
		ParseMode: "Markdown",
		OwnerID:   1,
	}

	_, err := New(cfg, nil, nil, nil, nil, nil)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestNewBotNoToken(t *testing.T) {
	cfg := config.BotConfig{
		Token:     "",
		ParseMode: "Markdown",
		OwnerID:   1,
	}

	_, err := New(cfg, nil, nil, nil, nil, nil)
	if err == nil {
		t.Error("Expected error when token is empty")
	}
}
