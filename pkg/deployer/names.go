package deployer

import (
	"crypto/rand"
	_ "embed"
	"fmt"
	"math/big"
	"strings"
)

//go:embed words/adjectives.txt
var adjectivesFile string

//go:embed words/nouns.txt
var nounsFile string

var (
	adjectives = splitWords(adjectivesFile)
	nouns      = splitWords(nounsFile)
)

func splitWords(file string) []string {
	var words []string
	for _, line := range strings.Split(file, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			words = append(words, line)
		}
	}
	return words
}

// DeploymentID computes the externally visible deployment id: the optional
// prefix and group joined with the application name by hyphens. The id is
// deterministic for a given request; randomization, when enabled, appends
// a word-pair suffix.
func DeploymentID(prefix, group, name string) string {
	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if group != "" {
		parts = append(parts, group)
	}
	parts = append(parts, name)
	return strings.Join(parts, "-")
}

// RandomSuffix draws an adjective-noun pair for name uniqueness.
func RandomSuffix() (string, error) {
	adjective, err := pick(adjectives)
	if err != nil {
		return "", err
	}
	noun, err := pick(nouns)
	if err != nil {
		return "", err
	}
	return adjective + "-" + noun, nil
}

func pick(words []string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", fmt.Errorf("drawing random word: %w", err)
	}
	return words[n.Int64()], nil
}
