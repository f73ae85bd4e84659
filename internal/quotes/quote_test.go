package quotes

import (
	"testing"

	logx "quotebot/pkg/logx"
)

func nopLog() logx.Logger { return logx.Nop() }

func TestRender(t *testing.T) {
	t.Parallel()
	q := Quote{ID: 12345, Date: "23.10.2015 9:45", Rating: 123, Text: "first line\nsecond line"}
	want := "#12345 23.10.2015 9:45\n+123\n\nfirst line\nsecond line"
	if got := q.Render(); got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}
