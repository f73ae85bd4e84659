package app

import (
	"strings"
	"testing"
	"time"

	"quotebot/internal/config"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "zero config ok", mutate: func(c *config.Config) {}},
		{
			name:    "negative buffer size",
			mutate:  func(c *config.Config) { c.Quotes.BufferSize = -1 },
			wantErr: "quotes.buffer_size",
		},
		{
			name:    "negative rate",
			mutate:  func(c *config.Config) { c.Telegram.RatePerChat = -0.5 },
			wantErr: "telegram.rate_per_chat",
		},
		{
			name:    "bad poll timeout",
			mutate:  func(c *config.Config) { c.Telegram.PollTimeout = "soon" },
			wantErr: "telegram.poll_timeout",
		},
		{
			name:    "bad refill timeout",
			mutate:  func(c *config.Config) { c.Quotes.RefillTimeout = "-3s" },
			wantErr: "quotes.refill_timeout",
		},
		{
			name:    "bad busy timeout",
			mutate:  func(c *config.Config) { c.Storage.BusyTimeout = "never" },
			wantErr: "storage.busy_timeout",
		},
		{
			name: "bad daily schedule",
			mutate: func(c *config.Config) {
				c.Daily.Enabled = true
				c.Daily.Schedule = "not cron"
			},
			wantErr: "schedule",
		},
		{
			name: "bad daily timezone",
			mutate: func(c *config.Config) {
				c.Daily.Enabled = true
				c.Daily.Timezone = "Atlantis/Lost"
			},
			wantErr: "timezone",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var cfg config.Config
			tc.mutate(&cfg)
			err := Validate(&cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestMapStorageConfigDefaults(t *testing.T) {
	t.Parallel()
	var cfg config.Config
	cfg.Storage.Path = "quotes.db"

	sc, err := mapStorageConfig(&cfg)
	if err != nil {
		t.Fatalf("mapStorageConfig: %v", err)
	}
	if sc.Driver != "sqlite" {
		t.Fatalf("Driver = %q, want sqlite default", sc.Driver)
	}
	if sc.Path != "quotes.db" {
		t.Fatalf("Path = %q", sc.Path)
	}

	cfg.Storage.Driver = "file"
	cfg.Storage.BusyTimeout = "2s"
	sc, err = mapStorageConfig(&cfg)
	if err != nil {
		t.Fatalf("mapStorageConfig: %v", err)
	}
	if sc.Driver != "file" || sc.BusyTimeout != 2*time.Second {
		t.Fatalf("got %+v", sc)
	}
}

func TestMapQuotesConfigDefaults(t *testing.T) {
	t.Parallel()
	var cfg config.Config

	qc, err := mapQuotesConfig(&cfg)
	if err != nil {
		t.Fatalf("mapQuotesConfig: %v", err)
	}
	if qc.Capacity != 0 {
		t.Fatalf("Capacity = %d, want 0 (source applies its own default)", qc.Capacity)
	}
	if qc.RefillTimeout != 5*time.Second {
		t.Fatalf("RefillTimeout = %v, want 5s default", qc.RefillTimeout)
	}

	cfg.Quotes.BufferSize = 30
	cfg.Quotes.RefillTimeout = "500ms"
	qc, err = mapQuotesConfig(&cfg)
	if err != nil {
		t.Fatalf("mapQuotesConfig: %v", err)
	}
	if qc.Capacity != 30 || qc.RefillTimeout != 500*time.Millisecond {
		t.Fatalf("got %+v", qc)
	}
}

func TestMapDailyConfigDefaults(t *testing.T) {
	t.Parallel()
	var cfg config.Config

	dc := mapDailyConfig(&cfg)
	if dc.Schedule != "0 9 * * *" {
		t.Fatalf("Schedule = %q, want morning default", dc.Schedule)
	}
	if dc.Enabled {
		t.Fatal("Enabled = true, want false by default")
	}

	cfg.Daily.Enabled = true
	cfg.Daily.Schedule = "30 18 * * *"
	cfg.Daily.Timezone = "Europe/Moscow"
	dc = mapDailyConfig(&cfg)
	if !dc.Enabled || dc.Schedule != "30 18 * * *" || dc.Timezone != "Europe/Moscow" {
		t.Fatalf("got %+v", dc)
	}
}
