// Package format applies the cosmetic post-processing used for assistant replies:
// numbered list items start a new paragraph and a few product keywords are emphasised.
package format

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// DefaultKeywords are matched case-insensitively as word prefixes. The Finnish
// entries are stems shared by the inflected forms ("liikuntaan", "liikunnan",
// "ravitsemukseen", "hyvinvoinnin").
var DefaultKeywords = []string{
	"BitHabit",
	"WellPro",
	"liikun",
	"ravitsemu",
	"hyvinvoin",
}

// Whitespace before a numbered marker ("1. ") collapses to one paragraph break.
// A marker at the very start of the text gets the break as well. Markers have
// at most two digits so a year ending a sentence ("2024. ") is left alone.
const markerPattern = `(?:\s+|^)(?=\d{1,2}\.\s)`

type Formatter struct {
	markers  *regexp2.Regexp
	keywords *regexp2.Regexp
}

var defaultFormatter = MustNew(DefaultKeywords)

func New(keywords []string) (*Formatter, error) {
	markers, err := regexp2.Compile(markerPattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("failed to compile marker pattern: %w", err)
	}

	f := &Formatter{markers: markers}
	if len(keywords) == 0 {
		return f, nil
	}

	escaped := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		escaped = append(escaped, regexp2.Escape(kw))
	}
	if len(escaped) == 0 {
		return f, nil
	}

	// Already emphasised words are left alone.
	pattern := `(?<!\*\*)\b(?:` + strings.Join(escaped, "|") + `)\w*`
	f.keywords, err = regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("failed to compile keyword pattern: %w", err)
	}
	return f, nil
}

func MustNew(keywords []string) *Formatter {
	f, err := New(keywords)
	if err != nil {
		panic(err)
	}
	return f
}

// Reply formats text. Applying it twice gives the same result as applying it once.
func (f *Formatter) Reply(text string) string {
	out, err := f.markers.Replace(text, "\n\n", -1, -1)
	if err != nil {
		return text
	}

	if f.keywords == nil {
		return out
	}
	runes := []rune(out)
	emphasised, err := f.keywords.ReplaceFunc(out, func(m regexp2.Match) string {
		// Inside an open bold span; nesting would break the markup.
		if strings.Count(string(runes[:m.Index]), "**")%2 == 1 {
			return m.String()
		}
		return "**" + m.String() + "**"
	}, -1, -1)
	if err != nil {
		return out
	}
	return emphasised
}

// Reply formats text with DefaultKeywords.
func Reply(text string) string {
	return defaultFormatter.Reply(text)
}
