package world

import "strings"

const DefaultSeed = "prototype"

// NormalizeSeed trims seed, falling back to DefaultSeed when blank.
func NormalizeSeed(seed string) string {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return DefaultSeed
	}
	return seed
}
