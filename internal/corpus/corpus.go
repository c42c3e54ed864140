package corpus

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// defaultSentences ships with the binary so a client can run without a
// corpus file.
var defaultSentences = []string{
	"the quick brown fox jumps over the lazy dog",
	"pack my box with five dozen liquor jugs",
	"how vexingly quick daft zebras jump",
	"sphinx of black quartz judge my vow",
	"the five boxing wizards jump quickly",
	"a wizard's job is to vex chunks in fog",
	"waltz bad nymph for quick jigs vex",
	"quick zephyrs blow vexing daft jim",
	"two driven jocks help fax my big quiz",
	"the jay pig fox zebra and my wolves quack",
}

// Corpus is a static, immutable list of target sentences. Sentences carry
// 1-based IDs in load order.
type Corpus struct {
	sentences []string
	rng       *rand.Rand
}

// New builds a corpus from an explicit sentence list.
func New(sentences []string, rng *rand.Rand) (*Corpus, error) {
	if len(sentences) == 0 {
		return nil, fmt.Errorf("corpus is empty")
	}
	return &Corpus{sentences: sentences, rng: rng}, nil
}

// Default returns the built-in corpus.
func Default(rng *rand.Rand) *Corpus {
	c, _ := New(defaultSentences, rng)
	return c
}

// Load reads a corpus from a file with one sentence per line. Blank lines
// and lines starting with '#' are skipped.
func Load(path string, rng *rand.Rand) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()

	var sentences []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sentences = append(sentences, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}

	return New(sentences, rng)
}

// Pick draws a sentence uniformly at random and returns its 1-based ID.
func (c *Corpus) Pick() (int, string) {
	idx := c.rng.Intn(len(c.sentences))
	return idx + 1, c.sentences[idx]
}

// Len returns the number of sentences.
func (c *Corpus) Len() int {
	return len(c.sentences)
}
