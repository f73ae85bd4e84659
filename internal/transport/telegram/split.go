package telegram

// Telegram rejects messages over 4096 chars; stay under with some margin.
const telegramTextLimit = 4000

// splitText splits long messages into chunks that are safe to send to
// Telegram. It prefers newline boundaries so quotes break between lines
// rather than mid-sentence.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}

		// Prefer splitting on a newline near the end of the window.
		if end < len(rs) {
			cut := -1
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' {
					// Avoid extremely small chunks.
					if i-start >= limit/3 {
						cut = i + 1
						break
					}
				}
			}
			if cut != -1 {
				end = cut
			}
		}

		out = append(out, string(rs[start:end]))
		start = end
	}
	return out
}
