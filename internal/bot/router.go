package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	kit "quotebot/internal/transport"
	logx "quotebot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	Name        string // without leading slash, e.g. "quote"
	Description string
	Access      Access
	Timeout     time.Duration // optional per-command override
	Handle      HandlerFunc
}

type Request struct {
	Msg  *kit.Message
	Chat kit.ChatTarget
	Args []string

	Adapter kit.Adapter
	Logger  logx.Logger
}

// Reply sends text back to the chat the command came from.
func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true})
	return err
}

type Config struct {
	// Owners may run owner-only commands. Empty means owner-only commands
	// are rejected for everyone.
	Owners []int64

	// RatePerChat limits how many commands per second a single chat may run
	// (token bucket, Burst capacity). 0 disables limiting.
	RatePerChat float64
	Burst       int

	// DefaultTimeout bounds a single command execution.
	DefaultTimeout time.Duration
}

type Router struct {
	log     logx.Logger
	adapter kit.Adapter
	cfg     Config

	mu       sync.Mutex
	order    []string
	cmds     map[string]Command
	limiters map[int64]*rate.Limiter
}

func NewRouter(cfg Config, adapter kit.Adapter, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 10 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}
	return &Router{
		log:      log,
		adapter:  adapter,
		cfg:      cfg,
		cmds:     map[string]Command{},
		limiters: map[int64]*rate.Limiter{},
	}
}

func (r *Router) Register(cmds ...Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cmds {
		name := strings.TrimPrefix(strings.TrimSpace(c.Name), "/")
		if name == "" || c.Handle == nil {
			continue
		}
		c.Name = name
		if _, dup := r.cmds[name]; !dup {
			r.order = append(r.order, name)
		}
		r.cmds[name] = c
	}
}

// Commands returns the registered public commands in registration order,
// ready for the platform command menu.
func (r *Router) Commands() []kit.BotCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]kit.BotCommand, 0, len(r.order))
	for _, name := range r.order {
		c := r.cmds[name]
		if c.Access != AccessEveryone {
			continue
		}
		out = append(out, kit.BotCommand{Command: c.Name, Description: c.Description})
	}
	return out
}

// HandleUpdate parses one inbound update and dispatches the matched command.
// Non-command text and unknown commands are ignored (group chats are noisy).
func (r *Router) HandleUpdate(ctx context.Context, up kit.Update) {
	m := up.Message
	if m == nil {
		return
	}
	name, args, ok := parseCommand(m.Text)
	if !ok {
		return
	}

	r.mu.Lock()
	cmd, found := r.cmds[name]
	r.mu.Unlock()
	if !found {
		return
	}

	if !r.allow(m.ChatID) {
		r.log.Debug("rate-limited command dropped",
			logx.String("cmd", name), logx.Int64("chat", m.ChatID))
		return
	}

	if cmd.Access == AccessOwnerOnly && !r.isOwner(m.FromID) {
		r.log.Warn("owner-only command rejected",
			logx.String("cmd", name), logx.Int64("from", m.FromID))
		return
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.cfg.DefaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &Request{
		Msg:     m,
		Chat:    kit.ChatTarget{ChatID: m.ChatID},
		Args:    args,
		Adapter: r.adapter,
		Logger:  r.log.With(logx.String("cmd", name), logx.Int64("chat", m.ChatID)),
	}

	start := time.Now()
	err := runHandler(cctx, cmd, req)
	if err != nil {
		req.Logger.Error("command failed", logx.Err(err), logx.Duration("took", time.Since(start)))
		return
	}
	req.Logger.Info("command handled", logx.Duration("took", time.Since(start)))
}

func runHandler(ctx context.Context, cmd Command, req *Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in /%s: %v\n%s", cmd.Name, rec, debug.Stack())
		}
	}()
	return cmd.Handle(ctx, req)
}

func (r *Router) isOwner(userID int64) bool {
	for _, id := range r.cfg.Owners {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *Router) allow(chatID int64) bool {
	if r.cfg.RatePerChat <= 0 {
		return true
	}
	r.mu.Lock()
	lim, ok := r.limiters[chatID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(r.cfg.RatePerChat), r.cfg.Burst)
		r.limiters[chatID] = lim
	}
	r.mu.Unlock()
	return lim.Allow()
}

// parseCommand extracts "/name args..." from a message.
// The "@botname" suffix Telegram appends in groups is stripped.
func parseCommand(text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text)
	name = strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	name = strings.ToLower(name)
	if name == "" {
		return "", nil, false
	}
	return name, fields[1:], true
}
