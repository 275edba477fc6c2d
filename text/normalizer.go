// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package text

import (
	"errors"
	"strings"
	"sync"
	"unicode"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// maxLemmaPasses bounds how often a token is re-lemmatized while searching
// for a stable base form.
const maxLemmaPasses = 4

// ErrLemmatizerRequired is returned when WithLemmatizer is given nil.
var ErrLemmatizerRequired = errors.New("lemmatizer required")

// Lemmatizer reduces a word to its dictionary base form. Unknown words are
// returned unchanged.
type Lemmatizer interface {
	Lemma(word string) string
}

// IdentityLemmatizer leaves every word as is.
type IdentityLemmatizer struct{}

func (IdentityLemmatizer) Lemma(word string) string { return word }

// englishLemmatizer loads the golem English dictionary once per process.
var englishLemmatizer = sync.OnceValues(func() (Lemmatizer, error) {
	return golem.New(en.New())
})

// Normalizer turns free text into a canonical, space-separated stream of
// lower-case, lemmatized, non-stop-word alphanumeric tokens.
// A Normalizer is read-only after construction and safe for concurrent use.
type Normalizer struct {
	lemmatizer Lemmatizer
	stopWords  map[string]bool
}

// Option configures a Normalizer.
type Option func(*Normalizer) error

// WithLemmatizer replaces the default English dictionary lemmatizer.
func WithLemmatizer(l Lemmatizer) Option {
	return func(n *Normalizer) error {
		if l == nil {
			return ErrLemmatizerRequired
		}
		n.lemmatizer = l
		return nil
	}
}

// WithStopWords replaces the default English stop-word set.
func WithStopWords(words []string) Option {
	return func(n *Normalizer) error {
		lowered := make([]string, len(words))
		for i, w := range words {
			lowered[i] = strings.ToLower(w)
		}
		n.stopWords = stopWordSet(lowered)
		return nil
	}
}

// NewNormalizer creates a Normalizer. Without options it uses the NLTK
// English stop words and the golem English lemmatizer.
func NewNormalizer(opts ...Option) (*Normalizer, error) {
	n := &Normalizer{
		stopWords: stopWordSet(englishStopWords),
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	if n.lemmatizer == nil {
		l, err := englishLemmatizer()
		if err != nil {
			return nil, err
		}
		n.lemmatizer = l
	}
	return n, nil
}

var defaultNormalizer = sync.OnceValues(func() (*Normalizer, error) {
	return NewNormalizer()
})

// Default returns the process-wide English Normalizer.
func Default() (*Normalizer, error) {
	return defaultNormalizer()
}

// Normalize joins fields with single spaces and returns the normalized text.
// Empty input yields "". Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(fields ...string) string {
	return strings.Join(n.Tokens(fields...), " ")
}

// Tokens returns the normalized tokens of the joined fields in their original order.
func (n *Normalizer) Tokens(fields ...string) []string {
	raw := strings.ToLower(strings.Join(fields, " "))
	words := strings.FieldsFunc(raw, isSeparator)

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if n.stopWords[word] {
			continue
		}
		lemma, ok := n.lemma(word)
		if !ok || n.stopWords[lemma] {
			continue
		}
		tokens = append(tokens, lemma)
	}
	return tokens
}

// lemma follows the lemmatizer until the form stops changing. Tokens whose
// base form never settles are dropped so the output is itself a fixed point.
func (n *Normalizer) lemma(word string) (string, bool) {
	current := word
	for i := 0; i < maxLemmaPasses; i++ {
		next := n.step(current)
		if next == current {
			return current, true
		}
		current = next
	}
	return "", false
}

func (n *Normalizer) step(word string) string {
	lemma := strings.ToLower(n.lemmatizer.Lemma(word))
	if !isWord(lemma) {
		return word
	}
	return lemma
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if isSeparator(r) {
			return false
		}
	}
	return true
}
