package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"telegram": {"token": "t0k", "owner_user_ids": [1, 2], "poll_timeout": "15s"},
		"quotes": {"buffer_size": 20, "refill_timeout": "3s"},
		"storage": {"driver": "sqlite", "path": "./quotes.db", "busy_timeout": "2s"},
		"daily": {"enabled": true, "schedule": "0 9 * * *"},
		"logging": {"level": "DEBUG", "console": true}
	}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Quotes.BufferSize != 20 {
		t.Fatalf("BufferSize = %d, want 20", cfg.Quotes.BufferSize)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "./quotes.db" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if !cfg.Daily.Enabled || cfg.Daily.Schedule != "0 9 * * *" {
		t.Fatalf("daily = %+v", cfg.Daily)
	}
	if len(cfg.Telegram.OwnerUserIDs) != 2 {
		t.Fatalf("owners = %v", cfg.Telegram.OwnerUserIDs)
	}
	if m.Get() != cfg {
		t.Fatal("Get() did not return committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
telegram:
  token: t0k
quotes:
  buffer_size: 7
storage:
  path: ./q.db
logging:
  console: true
`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Quotes.BufferSize != 7 {
		t.Fatalf("BufferSize = %d, want 7", cfg.Quotes.BufferSize)
	}
	if cfg.Telegram.Token != "t0k" {
		t.Fatalf("Token = %q", cfg.Telegram.Token)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"quotes": {"bufer_size": 15}}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for misspelled field")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"logging": {"console": true}} {"again": 1}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestSubscribePublish(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"logging": {"console": true}}`)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	cfg := &Config{Quotes: QuotesConfig{BufferSize: 5}}
	m.Commit(cfg)
	m.publish(cfg)

	select {
	case got := <-ch:
		if got.Quotes.BufferSize != 5 {
			t.Fatalf("published BufferSize = %d, want 5", got.Quotes.BufferSize)
		}
	case <-time.After(time.Second):
		t.Fatal("no config published")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty means zero", raw: "", want: 0},
		{name: "seconds", raw: "10s", want: 10 * time.Second},
		{name: "minutes", raw: "2m", want: 2 * time.Minute},
		{name: "negative", raw: "-1s", wantErr: true},
		{name: "garbage", raw: "soon", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationField("x", tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}

	d, err := ParseDurationOrDefault("x", "", 5*time.Second)
	if err != nil || d != 5*time.Second {
		t.Fatalf("ParseDurationOrDefault = (%v, %v), want 5s", d, err)
	}
}
