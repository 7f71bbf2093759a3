package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMessageID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"angle brackets stripped", "<abc-123@example.com>", "abc-123@example.com"},
		{"already bare", "abc-123@example.com", "abc-123@example.com"},
		{"surrounding whitespace", "  <abc@example.com>  ", "abc@example.com"},
		{"empty", "", ""},
		{"inner brackets untouched", "<a<b>@example.com>", "a<b>@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeMessageID(tt.input))
		})
	}
}

func TestIsStringInSlice(t *testing.T) {
	assert.True(t, IsStringInSlice("b", []string{"a", "b", "c"}))
	assert.False(t, IsStringInSlice("d", []string{"a", "b", "c"}))
	assert.False(t, IsStringInSlice("a", nil))
}
