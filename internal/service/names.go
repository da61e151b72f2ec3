package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Word lists for per-article pseudonyms. Small on purpose: uniqueness is
// per article, not global.
var (
	pseudonymAdjectives = []string{
		"amber", "bold", "calm", "daring", "eager", "fuzzy", "gentle",
		"hidden", "icy", "jolly", "keen", "lively", "mellow", "nimble",
		"odd", "proud", "quiet", "rapid", "shy", "tidy", "vivid", "witty",
	}
	pseudonymNouns = []string{
		"aardvark", "badger", "crane", "dingo", "echidna", "ferret",
		"gecko", "heron", "ibis", "jackal", "koala", "lyrebird", "magpie",
		"numbat", "otter", "possum", "quokka", "raven", "sparrow",
		"tern", "wombat", "yabby",
	}
)

// RandomPseudonym returns an adjective-noun display name like "quiet-quokka".
func RandomPseudonym() string {
	return fmt.Sprintf("%s-%s", pick(pseudonymAdjectives), pick(pseudonymNouns))
}

// RandomValidationCode returns a six-digit OTP string.
func RandomValidationCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64())
}

func pick(words []string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return words[0]
	}
	return words[n.Int64()]
}
