package quotes

import (
	"fmt"
	"strings"
)

// Quote is one immutable stored quote. Quotes are created by an out-of-band
// ingestion process; this system only reads them.
type Quote struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// Render formats a quote the way the bot presents it:
//
//	#1234 23.10.2015 9:45
//	+123
//
//	<quote text>
func (q Quote) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s\n+%d\n\n", q.ID, q.Date, q.Rating)
	b.WriteString(q.Text)
	return b.String()
}
