package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSecretRedaction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "secret is redacted",
			input:    "my-secret-password",
			expected: "[REDACTED]",
		},
		{
			name:     "empty secret is still redacted",
			input:    "",
			expected: "[REDACTED]",
		},
		{
			name:     "complex secret is redacted",
			input:    "password123!@#",
			expected: "[REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Secret(tt.input).String()
			if result != tt.expected {
				t.Errorf("Secret(%q).String() = %q, want %q", tt.input, result, tt.expected)
			}
			goString := Secret(tt.input).GoString()
			if goString != tt.expected {
				t.Errorf("Secret(%q).GoString() = %q, want %q", tt.input, goString, tt.expected)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	out := Redact("connecting with password hunter22 to db", []string{"hunter22"})
	if strings.Contains(out, "hunter22") {
		t.Errorf("Redact left the secret in place: %q", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("Redact did not insert placeholder: %q", out)
	}

	// Trivially short values are left alone to avoid mangling output.
	out = Redact("x=ab", []string{"ab"})
	if out != "x=ab" {
		t.Errorf("Redact mangled short value: %q", out)
	}
}

func TestLoggerDebugMode(t *testing.T) {
	var buf bytes.Buffer

	logger := New(false, true)
	logger.SetOutput(&buf)
	logger.Debug("should not appear")
	if buf.Len() != 0 {
		t.Errorf("debug output produced with debug disabled: %q", buf.String())
	}

	logger = New(true, true)
	logger.SetOutput(&buf)
	logger.Debug("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("debug output missing: %q", buf.String())
	}
}

func TestNamedLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := New(false, true)
	logger.SetOutput(&buf)
	logger.Named("scheduler").Info("tick")

	if !strings.Contains(buf.String(), "scheduler: tick") {
		t.Errorf("expected component prefix, got %q", buf.String())
	}
}
