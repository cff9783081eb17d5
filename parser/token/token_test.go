// Copyright © 2025 The MON authors

package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeString(t *testing.T) {
	used := make(map[string]bool)
	for tok := Type(0); tok < numTokenTypes; tok++ {
		str := tok.String()
		if str == "" {
			t.Errorf("token type %x has empty string value", tok)
			continue
		}
		if used[str] {
			t.Errorf("token type string used twice: %v", tok)
		}
		used[str] = true
	}
	assert.Equal(t, "invalid", numTokenTypes.String())
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, `identifier "name"`, (&Token{Type: IDENT, Text: "name"}).String())
	assert.Equal(t, "::", (&Token{Type: DCOLON, Text: "::"}).String())
}

func TestLocationError(t *testing.T) {
	err := &LocationError{
		Err:    assert.AnError,
		Source: &Location{File: "a.mon", Pos: 4, Line: 2, Col: 3},
	}
	assert.Equal(t, "a.mon:2:3: "+assert.AnError.Error(), err.Error())
	assert.ErrorIs(t, err, assert.AnError)
}
