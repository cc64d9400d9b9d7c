package prompt

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Token ids are drawn from this range, away from the low byte-level ids.
const (
	minTokenID = 100
	maxTokenID = 50000
)

var loaderOnce sync.Once

// TokenSource decodes random token ids with a BPE encoding, so the prompt is
// close to the requested length when re-tokenized by the service.
// It is not safe for concurrent use.
type TokenSource struct {
	encoding *tiktoken.Tiktoken
	rng      *rand.Rand
}

// NewTokenSource loads the named encoding from the embedded BPE files.
func NewTokenSource(encoding string, seed int64) (*TokenSource, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &TokenSource{encoding: enc, rng: newRand(seed)}, nil
}

func (s *TokenSource) Prompt(tokens int) (string, error) {
	ids := make([]int, tokens)
	for i := range ids {
		ids[i] = minTokenID + s.rng.IntN(maxTokenID-minTokenID+1)
	}
	return s.encoding.Decode(ids), nil
}

// Count returns the number of tokens text encodes to.
func (s *TokenSource) Count(text string) int {
	return len(s.encoding.Encode(text, nil, nil))
}
