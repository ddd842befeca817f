package stenography

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName_AllNamesResolve(t *testing.T) {
	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			transform, ok := ByName(name)
			require.True(t, ok)
			assert.NotPanics(t, func() { transform("hello world") })
		})
	}
}

func TestByName_Unknown(t *testing.T) {
	_, ok := ByName("nope")
	assert.False(t, ok)
}

func TestRot13_Involution(t *testing.T) {
	assert.Equal(t, "hello", rot13(rot13("hello")))
}

func TestRot5_Involution(t *testing.T) {
	assert.Equal(t, "12345", rot5(rot5("12345")))
}

func TestMirror(t *testing.T) {
	assert.Equal(t, "cba", mirror("abc"))
}

func TestBase64Encode(t *testing.T) {
	assert.Equal(t, "aGk=", base64Encode("hi"))
}

func TestVowelRemoval(t *testing.T) {
	assert.Equal(t, "hll wrld", vowelRemoval("hello world"))
}

func TestAsciiSubstitute(t *testing.T) {
	assert.Equal(t, "l33t 5p34k", asciiSubstitute("leet speak"))
}
