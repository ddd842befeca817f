// Package stenography implements the codebase's (sic) term for a set of
// pure textual obfuscation transforms used as dynamic dataset mutators.
package stenography

import (
	"encoding/base64"
	"math/rand/v2"
	"strings"
	"unicode"
)

// Transform is a named, pure string-to-string obfuscation.
type Transform func(string) string

// Names lists the transforms in a stable, documented order.
var Names = []string{
	"rot5", "rot13", "base64", "mirror", "random_case",
	"word_scramble", "noise_insertion", "ascii_substitute",
	"vowel_removal", "zigzag_case",
}

// ByName resolves a transform by its registry name.
func ByName(name string) (Transform, bool) {
	t, ok := registry[name]

	return t, ok
}

var registry = map[string]Transform{
	"rot5":             rot5,
	"rot13":            rot13,
	"base64":           base64Encode,
	"mirror":           mirror,
	"random_case":      randomCase,
	"word_scramble":    wordScramble,
	"noise_insertion":  noiseInsertion,
	"ascii_substitute": asciiSubstitute,
	"vowel_removal":    vowelRemoval,
	"zigzag_case":      zigzagCase,
}

func rot5(s string) string {
	return mapRunes(s, func(r rune) rune {
		if r >= '0' && r <= '9' {
			return '0' + (r-'0'+5)%10
		}

		return r
	})
}

func rot13(s string) string {
	return mapRunes(s, func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return 'a' + (r-'a'+13)%26
		case r >= 'A' && r <= 'Z':
			return 'A' + (r-'A'+13)%26
		default:
			return r
		}
	})
}

func base64Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func mirror(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}

	return string(runes)
}

func randomCase(s string) string {
	return mapRunes(s, func(r rune) rune {
		if rand.IntN(2) == 0 {
			return unicode.ToUpper(r)
		}

		return unicode.ToLower(r)
	})
}

func wordScramble(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		if len(runes) <= 3 {
			continue
		}

		inner := runes[1 : len(runes)-1]
		rand.Shuffle(len(inner), func(a, b int) { inner[a], inner[b] = inner[b], inner[a] })
		words[i] = string(runes)
	}

	return strings.Join(words, " ")
}

const noiseChars = "~*^#%"

func noiseInsertion(s string) string {
	var b strings.Builder

	for i, r := range s {
		b.WriteRune(r)

		if i%7 == 6 {
			b.WriteByte(noiseChars[i%len(noiseChars)])
		}
	}

	return b.String()
}

var asciiSubstitutions = map[rune]rune{
	'a': '4', 'e': '3', 'i': '1', 'o': '0', 's': '5', 't': '7',
}

func asciiSubstitute(s string) string {
	return mapRunes(s, func(r rune) rune {
		if sub, ok := asciiSubstitutions[unicode.ToLower(r)]; ok {
			return sub
		}

		return r
	})
}

func vowelRemoval(s string) string {
	return strings.Map(func(r rune) rune {
		switch unicode.ToLower(r) {
		case 'a', 'e', 'i', 'o', 'u':
			return -1
		default:
			return r
		}
	}, s)
}

func zigzagCase(s string) string {
	upper := true

	return mapRunes(s, func(r rune) rune {
		if !unicode.IsLetter(r) {
			return r
		}

		defer func() { upper = !upper }()

		if upper {
			return unicode.ToUpper(r)
		}

		return unicode.ToLower(r)
	})
}

func mapRunes(s string, f func(rune) rune) string {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = f(r)
	}

	return string(runes)
}
