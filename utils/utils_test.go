package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"prog", "-h"}, "-h"))
	assert.False(t, Contains([]string{"prog", "-j"}, "-h"))
	assert.False(t, Contains(nil, 1))
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny([]string{"prog", "--help"}, "-h", "--help"))
	assert.False(t, ContainsAny([]string{"prog", "10.0.0.1"}, "-h", "--help"))
	assert.False(t, ContainsAny([]int{1, 2}))
}
