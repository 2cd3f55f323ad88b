package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("cadet@example.com"))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("@example.com"))
	assert.False(t, ValidEmail("cadet@"))
	assert.False(t, ValidEmail("cadet@nodot"))
}

func TestValidPassword(t *testing.T) {
	assert.True(t, ValidPassword("Str0ngpass"), "three classes suffice")
	assert.True(t, ValidPassword("Str0ng!pass"))
	assert.False(t, ValidPassword("Sh0rt!"), "under 8 characters")
	assert.False(t, ValidPassword("alllowercase"), "single class")
	assert.False(t, ValidPassword("lowerand123"), "only two classes")
}
