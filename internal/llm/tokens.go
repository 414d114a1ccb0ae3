package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Rough characters-per-token ratio used when no encoding is available.
const tokenApproximation = 4

// encodings caches one load attempt per model. A failed load is cached too,
// so an unreachable BPE download is tried only once.
var encodings sync.Map

type encodingEntry struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// CountTokens returns the number of tokens text uses for model. When the
// encoding cannot be loaded it falls back to an approximation.
func CountTokens(model, text string) int {
	enc, err := encodingFor(model)
	if err != nil {
		return approximateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	v, _ := encodings.LoadOrStore(model, &encodingEntry{})
	entry := v.(*encodingEntry)
	entry.once.Do(func() {
		entry.enc, entry.err = loadEncoding(model)
	})
	return entry.enc, entry.err
}

// loadEncoding is replaced in tests.
var loadEncoding = func(model string) (*tiktoken.Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return tiktoken.GetEncoding("cl100k_base")
	}
	return enc, nil
}

func approximateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + tokenApproximation - 1) / tokenApproximation
}
