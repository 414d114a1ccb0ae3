package llm

import (
	"errors"
	"testing"

	"github.com/pkoukk/tiktoken-go"
	"github.com/stretchr/testify/assert"
)

func TestApproximateTokens(t *testing.T) {
	assert.Equal(t, 0, approximateTokens(""))
	assert.Equal(t, 1, approximateTokens("abc"))
	assert.Equal(t, 2, approximateTokens("abcde"))
	assert.Equal(t, 1, approximateTokens("äöå"))
	assert.Equal(t, 2, approximateTokens("hyvää yö"))
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens("gpt-3.5-turbo", ""))

	short := CountTokens("gpt-3.5-turbo", "Hei")
	long := CountTokens("gpt-3.5-turbo", "Hei, kerro minulle jotain hyvinvoinnista ja liikunnasta.")
	assert.Positive(t, short)
	assert.Greater(t, long, short)
}

func TestCountTokensCachesLoadFailure(t *testing.T) {
	orig := loadEncoding
	t.Cleanup(func() { loadEncoding = orig })

	loads := 0
	loadEncoding = func(model string) (*tiktoken.Tiktoken, error) {
		loads++
		return nil, errors.New("dial tcp: network is unreachable")
	}

	model := "offline-" + t.Name()
	assert.Equal(t, 2, CountTokens(model, "abcdefgh"))
	assert.Equal(t, 1, CountTokens(model, "abc"))
	assert.Equal(t, 1, loads)
}
