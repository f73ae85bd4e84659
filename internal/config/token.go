package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// TokenEnvVar overrides any token configured in the file. Handy for systemd
// drop-ins and .env files.
const TokenEnvVar = "QUOTEBOT_TELEGRAM_TOKEN"

// ResolveToken picks the bot token: env var, then telegram.token, then the
// contents of telegram.token_file. Keeping the token in a separate file keeps
// it out of version control.
func (c *TelegramConfig) ResolveToken() (string, error) {
	if v := strings.TrimSpace(os.Getenv(TokenEnvVar)); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(c.Token); v != "" {
		return v, nil
	}
	if path := strings.TrimSpace(c.TokenFile); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("telegram.token_file: %w", err)
		}
		if v := strings.TrimSpace(string(b)); v != "" {
			return v, nil
		}
		return "", fmt.Errorf("telegram.token_file: %s is empty", path)
	}
	return "", errors.New("telegram token is not configured (token, token_file or " + TokenEnvVar + ")")
}
