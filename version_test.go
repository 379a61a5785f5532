package pgwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseServerVersion(t *testing.T) {
	cases := []struct {
		in   string
		want ServerVersion
	}{
		{"10.4 (Ubuntu 10.4)", ServerVersion{Major: 10, Minor: 4, Revision: 0, Suffix: " (Ubuntu 10.4)"}},
		{"9.6.1", ServerVersion{Major: 9, Minor: 6, Revision: 1, Suffix: ""}},
		{"13.2", ServerVersion{Major: 13, Minor: 2, Revision: 0, Suffix: ""}},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, parseServerVersion(c.in), c.in)
	}
}

func TestParseIntegerDatetimes(t *testing.T) {
	assert.True(t, parseIntegerDatetimes("on"))
	assert.True(t, parseIntegerDatetimes("yes"))
	assert.True(t, parseIntegerDatetimes("1"))
	assert.False(t, parseIntegerDatetimes("off"))
	assert.False(t, parseIntegerDatetimes("no"))
	assert.False(t, parseIntegerDatetimes("0"))
}
