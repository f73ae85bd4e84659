package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	logx "quotebot/pkg/logx"
)

func writeQuoteFile(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quotes.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o600); err != nil {
		t.Fatalf("write quote file: %v", err)
	}
	return path
}

const sampleQuotes = `{"id":1,"date":"01.01.2020","rating":10,"text":"one"}
{"id":2,"date":"02.01.2020","rating":20,"text":"two"}

{"id":3,"date":"03.01.2020","rating":30,"text":"three"}
`

func TestFileStoreSampleRandom(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Driver: "file", Path: writeQuoteFile(t, sampleQuotes)}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	got, err := st.SampleRandom(context.Background(), 2)
	if err != nil {
		t.Fatalf("SampleRandom: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Without replacement within the call.
	if got[0].ID == got[1].ID {
		t.Fatalf("duplicate quote %d in one sample", got[0].ID)
	}

	// Asking for more than stored returns everything, not an error.
	all, err := st.SampleRandom(context.Background(), 50)
	if err != nil {
		t.Fatalf("SampleRandom: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}

	n, err := st.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Fatalf("Count = %d, want 3", n)
	}
}

func TestFileStoreEmpty(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Driver: "file", Path: writeQuoteFile(t, "")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	got, err := st.SampleRandom(context.Background(), 15)
	if err != nil {
		t.Fatalf("SampleRandom: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

func TestFileStoreCorruptLine(t *testing.T) {
	t.Parallel()
	path := writeQuoteFile(t, `{"id":1,"date":"","rating":0,"text":"ok"}
not json at all
`)
	_, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Open error = %v, want ErrCorrupt", err)
	}
}

func TestFileStoreMissing(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "nope.jsonl")}, logx.Nop())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Open error = %v, want ErrUnavailable", err)
	}
}

func TestFileStoreSubscribersPersist(t *testing.T) {
	t.Parallel()
	path := writeQuoteFile(t, sampleQuotes)
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.AddSubscriber(ctx, 42); err != nil {
		t.Fatalf("AddSubscriber: %v", err)
	}
	if err := st.AddSubscriber(ctx, -100); err != nil {
		t.Fatalf("AddSubscriber: %v", err)
	}
	if err := st.AddSubscriber(ctx, 42); err != nil { // idempotent
		t.Fatalf("AddSubscriber repeat: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen: subscribers survive restarts.
	st, err = Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	subs, err := st.Subscribers(ctx)
	if err != nil {
		t.Fatalf("Subscribers: %v", err)
	}
	if len(subs) != 2 || subs[0] != -100 || subs[1] != 42 {
		t.Fatalf("Subscribers = %v, want [-100 42]", subs)
	}

	if err := st.RemoveSubscriber(ctx, 42); err != nil {
		t.Fatalf("RemoveSubscriber: %v", err)
	}
	subs, err = st.Subscribers(ctx)
	if err != nil {
		t.Fatalf("Subscribers: %v", err)
	}
	if len(subs) != 1 || subs[0] != -100 {
		t.Fatalf("Subscribers = %v, want [-100]", subs)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "etcd", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
