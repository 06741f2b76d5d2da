package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAny(t *testing.T) {
	assert.True(t, HasAny("light rain shower", "snow", "rain"))
	assert.False(t, HasAny("sunny", "rain", "cloud"))
	assert.False(t, HasAny("sunny"))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "SP", FirstNonEmpty("", "  ", "SP", "RJ"))
	assert.Equal(t, "", FirstNonEmpty("", " "))
	assert.Equal(t, "", FirstNonEmpty())
}
