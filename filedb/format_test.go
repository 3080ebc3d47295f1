package filedb

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmpty(t *testing.T) {
	m, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestParseOneLine(t *testing.T) {
	line := "hello" + KVSep + "this -is test -value" + LineTerm
	m, err := Parse([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"hello": "this -is test -value"}, m)
}

func TestParseInvalid(t *testing.T) {
	tests := []string{
		// bad key/value separator
		"hello<haha>this -is test -value" + LineTerm,
		// bad line terminator
		"key" + KVSep + "test-value -here!line_split!",
		// both bad
		"world|kek|test-value here<>!line_split!",
		// two separators
		"a" + KVSep + "b" + KVSep + "c" + LineTerm,
		// terminator without newline at the end
		"a" + KVSep + "b" + LineSentinel,
		// trailing garbage after last record
		"a" + KVSep + "b" + LineTerm + "\n",
	}
	for _, s := range tests {
		m, err := Parse([]byte(s))
		assert.Nil(t, m, "input: %q", s)
		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr), "input: %q", s)
	}
}

func TestParseRepeatedKeyLastWins(t *testing.T) {
	s := "a" + KVSep + "1" + LineTerm + "b" + KVSep + "2" + LineTerm + "a" + KVSep + "3" + LineTerm
	m, err := Parse([]byte(s))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, m)
}

func TestParseEmptyKeyAndValue(t *testing.T) {
	m, err := Parse([]byte(KVSep + LineTerm))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"": ""}, m)
}

func TestSerializeFormat(t *testing.T) {
	got := Serialize(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, "a|>!<|1|<!>|\nb|>!<|2|<!>|\n", string(got))
	assert.Empty(t, Serialize(nil))
}

var rng = rand.New(rand.NewSource(1))

func genRandomText(n int) string {
	// printable ascii plus newline and a bit of unicode
	letters := []rune("abcdefghijklmnopqrstuvwxyz ABC|<>!-_\"'\n\tżółć")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}

func genRandomMap(n int) map[string]string {
	m := map[string]string{}
	for len(m) < n {
		k := genRandomText(1 + rng.Intn(16))
		v := genRandomText(rng.Intn(200))
		if ValidateKey(k) != nil || ValidateText(v) != nil {
			continue
		}
		m[k] = v
	}
	return m
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 2, 10, 500} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			m := genRandomMap(n)
			got, err := Parse(Serialize(m))
			require.NoError(t, err)
			assert.Equal(t, m, got)
		})
	}
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText("echo hi | grep h > /dev/null"))
	assert.NoError(t, ValidateText(""))
	assert.ErrorIs(t, ValidateText("a|>!<|b"), ErrReservedSequence)
	assert.ErrorIs(t, ValidateText("a|<!>|b"), ErrReservedSequence)

	assert.NoError(t, ValidateKey("shell"))
	assert.ErrorIs(t, ValidateKey(""), ErrEmptyKey)
	assert.ErrorIs(t, ValidateKey("a|>!<|b"), ErrReservedSequence)
	assert.ErrorIs(t, ValidateKey("a|>!<"), ErrReservedSequence)
	// such key is split at the wrong separator
	m, err := Parse(AppendRecord(nil, "a|>!<", "v"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": ">!<|v"}, m)
}
