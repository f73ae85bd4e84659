// Package daily sends one random quote per day to every subscribed chat.
package daily

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"quotebot/internal/quotes"
	"quotebot/internal/storage"
	kit "quotebot/internal/transport"
	logx "quotebot/pkg/logx"
)

type Config struct {
	Enabled  bool
	Schedule string // cron spec, e.g. "0 9 * * *"
	Timezone string // IANA name; empty means local
}

type Service struct {
	cfg     Config
	source  *quotes.Source
	store   storage.Store
	adapter kit.Adapter
	log     logx.Logger

	mu      sync.Mutex
	c       *cron.Cron
	baseCtx context.Context
}

func New(cfg Config, source *quotes.Source, store storage.Store, adapter kit.Adapter, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, source: source, store: store, adapter: adapter, log: log}
}

// Validate checks the schedule and timezone without starting anything.
// Used for config validation on reload.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(strings.TrimSpace(c.Schedule)); err != nil {
		return fmt.Errorf("daily.schedule: invalid %q: %w", c.Schedule, err)
	}
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("daily.timezone: invalid %q: %w", tz, err)
		}
	}
	return nil
}

func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.baseCtx = ctx

	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		loc, _ = time.LoadLocation(tz)
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(strings.TrimSpace(s.cfg.Schedule), s.run); err != nil {
		return err
	}
	s.c = c
	c.Start()
	s.log.Info("daily quote scheduled",
		logx.String("spec", s.cfg.Schedule), logx.String("tz", loc.String()))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("daily quote stopped")
}

func (s *Service) run() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := s.Broadcast(ctx); err != nil {
		s.log.Warn("daily broadcast failed", logx.Err(err))
	}
}

// Broadcast draws one quote and sends it to every subscriber. Per-chat send
// failures (blocked bot, deleted chat) are logged and skipped; they don't
// abort the rest of the fanout.
func (s *Service) Broadcast(ctx context.Context) error {
	subs, err := s.store.Subscribers(ctx)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		s.log.Debug("no daily subscribers")
		return nil
	}

	q, err := s.source.Next(ctx)
	if err != nil {
		if errors.Is(err, quotes.ErrNoQuotes) {
			s.log.Debug("daily broadcast skipped, archive empty")
			return nil
		}
		return err
	}
	text := "Quote of the day\n\n" + q.Render()

	sent := 0
	for _, chatID := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := s.adapter.SendText(ctx, kit.ChatTarget{ChatID: chatID}, text,
			&kit.SendOptions{DisablePreview: true})
		if err != nil {
			s.log.Warn("daily send failed", logx.Int64("chat", chatID), logx.Err(err))
			continue
		}
		sent++
	}
	s.log.Info("daily quote sent", logx.Int64("quote", q.ID),
		logx.Int("subscribers", len(subs)), logx.Int("sent", sent))
	return nil
}
