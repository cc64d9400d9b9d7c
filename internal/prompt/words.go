package prompt

import (
	"math/rand/v2"
	"strings"
)

var vocabulary = strings.Fields(`
	the of and to in is was for on that with as by at from his her it an were are which this
	be or had not but have first one their its new after who they two been has more also other
	year time world city state system people water light river music market energy station garden
	history science window mountain question number result report service network engine signal
	orange silver bridge forest island letter planet season theory window yellow village winter
	measure compute stream token latency output input model request answer follow simple between
`)

// WordSource joins random dictionary words, one per requested token. It needs
// no tokenizer data and is handy for services without a BPE vocabulary match.
type WordSource struct {
	rng *rand.Rand
}

func NewWordSource(seed int64) *WordSource {
	return &WordSource{rng: newRand(seed)}
}

func (s *WordSource) Prompt(tokens int) (string, error) {
	var b strings.Builder
	for i := 0; i < tokens; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(vocabulary[s.rng.IntN(len(vocabulary))])
	}
	return b.String(), nil
}
