package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLoopbackHost(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"localhost", true},
		{"LOCALHOST", true},
		{" localhost ", true},
		{"", true},
		{"127.0.0.1", true},
		{"127.0.0.53", true},
		{"::1", true},
		{"mail.localhost", true},
		{"imap.example.com", false},
		{"10.0.0.1", false},
		{"192.168.1.20", false},
		{"8.8.8.8", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLoopbackHost(tt.host))
		})
	}
}
