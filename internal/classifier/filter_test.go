package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterClean(t *testing.T) {
	f := NewFilter(nil)

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"um, hello there", "hello there", true},
		{"Hello   there", "Hello there", true},
		{"uh um hmm", "", false},
		{"um... ?", "", false},
		{"", "", false},
		{"you know, I was thinking", "I was thinking", true},
		{"the umbrella is here", "the umbrella is here", true},
		{"Basically it works", "it works", true},
	}
	for _, tt := range tests {
		got, ok := f.Clean(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestFilterSetWords(t *testing.T) {
	f := NewFilter([]string{"Like", " ", "so"})
	assert.Equal(t, []string{"like", "so"}, f.Words())

	got, ok := f.Clean("so it was like great")
	assert.True(t, ok)
	assert.Equal(t, "it was great", got)

	f.SetWords(nil)
	assert.Empty(t, f.Words())
	got, _ = f.Clean("so it was like great")
	assert.Equal(t, "so it was like great", got)
}
