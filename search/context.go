package search

import "strings"

const blockSeparator = "\n\n---\n\n"

// contextEntry is one resolved retrieval hit, in relevance order.
type contextEntry struct {
	URL   string
	Title string
	Text  string
}

// renderBlock formats one entry for the model prompt.
func renderBlock(entry contextEntry) string {
	var b strings.Builder
	b.WriteString("[Source: ")
	b.WriteString(entry.URL)
	b.WriteString("]")
	if entry.Title != "" {
		b.WriteString(" ")
		b.WriteString(entry.Title)
	}
	b.WriteString("\n")
	b.WriteString(entry.Text)
	return b.String()
}

// assembleContext joins entries into one prompt block, dropping the
// lowest-relevance entries once maxBytes would be exceeded. The most
// relevant entry is always represented, truncated if it alone exceeds
// the budget.
func assembleContext(entries []contextEntry, maxBytes int) string {
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	for i, entry := range entries {
		block := renderBlock(entry)

		sep := ""
		if i > 0 {
			sep = blockSeparator
		}

		if b.Len()+len(sep)+len(block) > maxBytes {
			if i == 0 {
				return truncateUTF8(block, maxBytes)
			}
			break
		}

		b.WriteString(sep)
		b.WriteString(block)
	}

	return b.String()
}

// truncateUTF8 cuts s to at most maxBytes without splitting a rune.
func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
