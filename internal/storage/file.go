package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"quotebot/internal/quotes"
	logx "quotebot/pkg/logx"
)

// fileStore is a dependency-free backend for small collections.
//
// Files:
//   - <path>                      (quotes, append-only JSON Lines)
//   - <prefix>.subscribers.json   (subscriber snapshot, rewritten on change)
//
// The whole quote file is loaded at open; sampling happens in memory.
type fileStore struct {
	log logx.Logger

	mu     sync.Mutex
	all    []quotes.Quote
	subs   map[string]int64 // keyed by decimal chat id for stable JSON
	closed bool

	subsPath string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	all, err := loadQuotesJSONL(path)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	subsPath := filepath.Join(filepath.Dir(path), base+".subscribers.json")

	subs := map[string]int64{}
	_ = loadSubscribers(subsPath, subs)

	log.Info("quote file loaded", logx.Int("quotes", len(all)), logx.Int("subscribers", len(subs)))
	return &fileStore{log: log, all: all, subs: subs, subsPath: subsPath}, nil
}

func loadQuotesJSONL(path string) ([]quotes.Quote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer f.Close()

	var out []quotes.Quote
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var q quotes.Quote
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %w", ErrCorrupt, path, line, err)
		}
		out = append(out, q)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrUnavailable, path, err)
	}
	return out, nil
}

func loadSubscribers(path string, into map[string]int64) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &into)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fileStore) SampleRandom(ctx context.Context, n int) ([]quotes.Quote, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: store closed", ErrUnavailable)
	}
	if len(s.all) == 0 {
		return nil, nil
	}

	if n > len(s.all) {
		n = len(s.all)
	}
	out := make([]quotes.Quote, 0, n)
	for _, i := range rand.Perm(len(s.all))[:n] {
		out = append(out, s.all[i])
	}
	return out, nil
}

func (s *fileStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("%w: store closed", ErrUnavailable)
	}
	return int64(len(s.all)), nil
}

func (s *fileStore) AddSubscriber(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%d", chatID)
	if _, ok := s.subs[key]; ok {
		return nil
	}
	s.subs[key] = time.Now().Unix()
	return s.writeSubsLocked()
}

func (s *fileStore) RemoveSubscriber(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%d", chatID)
	if _, ok := s.subs[key]; !ok {
		return nil
	}
	delete(s.subs, key)
	return s.writeSubsLocked()
}

func (s *fileStore) Subscribers(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.subs))
	for key := range s.subs {
		var id int64
		if _, err := fmt.Sscanf(key, "%d", &id); err != nil {
			return nil, fmt.Errorf("%w: subscriber key %q: %w", ErrCorrupt, key, err)
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *fileStore) writeSubsLocked() error {
	b, err := json.MarshalIndent(s.subs, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.subsPath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := os.Rename(tmp, s.subsPath); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}
