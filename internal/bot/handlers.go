package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quotebot/internal/quotes"
	"quotebot/internal/storage"
	logx "quotebot/pkg/logx"
)

const startText = "Quote bot. Send /quote for a random quote from the archive.\n" +
	"/subscribe gets you one quote every morning."

const (
	msgNoQuotes    = "The archive is empty. Check back once some quotes are loaded."
	msgUnavailable = "The quote archive is unreachable right now. Try again in a minute."
	msgFailed      = "Could not fetch a quote. The problem is on our side."
	msgSubscribed  = "Subscribed. One quote a day, right here."
	msgUnsubbed    = "Unsubscribed. /subscribe to opt back in."
)

// unavailableRetries is how many times /quote re-asks a transiently failing
// store before giving up. The serving core itself never retries.
const unavailableRetries = 2

// Handlers owns the command implementations and their collaborators.
type Handlers struct {
	source *quotes.Source
	store  storage.Store
	log    logx.Logger
}

func NewHandlers(source *quotes.Source, store storage.Store, log logx.Logger) *Handlers {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handlers{source: source, store: store, log: log}
}

// Commands returns all bot commands for router registration.
func (h *Handlers) Commands() []Command {
	return []Command{
		{Name: "start", Description: "what this bot does", Handle: h.handleStart},
		{Name: "help", Description: "what this bot does", Handle: h.handleStart},
		{Name: "quote", Description: "a random quote", Handle: h.handleQuote},
		{Name: "subscribe", Description: "daily quote, on", Handle: h.handleSubscribe},
		{Name: "unsubscribe", Description: "daily quote, off", Handle: h.handleUnsubscribe},
		{Name: "stats", Description: "archive stats", Access: AccessOwnerOnly, Handle: h.handleStats},
	}
}

func (h *Handlers) handleStart(ctx context.Context, req *Request) error {
	return req.Reply(ctx, startText)
}

func (h *Handlers) handleQuote(ctx context.Context, req *Request) error {
	q, err := h.nextWithRetry(ctx)
	switch {
	case err == nil:
		return req.Reply(ctx, q.Render()+"\n\n/quote")
	case errors.Is(err, quotes.ErrNoQuotes):
		return req.Reply(ctx, msgNoQuotes)
	case errors.Is(err, storage.ErrUnavailable):
		req.Logger.Warn("store unreachable", logx.Err(err))
		return req.Reply(ctx, msgUnavailable)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Request abandoned; nothing useful to tell the chat.
		req.Logger.Debug("quote request cancelled", logx.Err(err))
		return nil
	default:
		// Includes storage.ErrCorrupt: a data problem, retrying won't help.
		req.Logger.Error("quote fetch failed", logx.Err(err))
		return req.Reply(ctx, msgFailed)
	}
}

// nextWithRetry retries only transient store failures, with short backoff.
// Corrupt data and an empty store surface immediately.
func (h *Handlers) nextWithRetry(ctx context.Context) (quotes.Quote, error) {
	backoff := 250 * time.Millisecond
	var lastErr error
	for attempt := 0; ; attempt++ {
		q, err := h.source.Next(ctx)
		if err == nil {
			return q, nil
		}
		lastErr = err
		if !errors.Is(err, storage.ErrUnavailable) || attempt >= unavailableRetries {
			return quotes.Quote{}, lastErr
		}
		select {
		case <-ctx.Done():
			return quotes.Quote{}, lastErr
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (h *Handlers) handleSubscribe(ctx context.Context, req *Request) error {
	if err := h.store.AddSubscriber(ctx, req.Chat.ChatID); err != nil {
		req.Logger.Warn("subscribe failed", logx.Err(err))
		return req.Reply(ctx, msgUnavailable)
	}
	return req.Reply(ctx, msgSubscribed)
}

func (h *Handlers) handleUnsubscribe(ctx context.Context, req *Request) error {
	if err := h.store.RemoveSubscriber(ctx, req.Chat.ChatID); err != nil {
		req.Logger.Warn("unsubscribe failed", logx.Err(err))
		return req.Reply(ctx, msgUnavailable)
	}
	return req.Reply(ctx, msgUnsubbed)
}

func (h *Handlers) handleStats(ctx context.Context, req *Request) error {
	count, err := h.store.Count(ctx)
	if err != nil {
		req.Logger.Warn("count failed", logx.Err(err))
		return req.Reply(ctx, msgUnavailable)
	}
	subs, err := h.store.Subscribers(ctx)
	if err != nil {
		req.Logger.Warn("subscribers failed", logx.Err(err))
		return req.Reply(ctx, msgUnavailable)
	}
	return req.Reply(ctx, fmt.Sprintf(
		"quotes stored: %d\npool remaining: %d\ndaily subscribers: %d",
		count, h.source.Remaining(), len(subs)))
}
