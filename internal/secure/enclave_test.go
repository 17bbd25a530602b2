package secure

import (
	"bytes"
	"testing"
)

func TestCredentialRoundTrip(t *testing.T) {
	t.Parallel()

	// memguard wipes the input slice, keep a copy for comparison.
	expected := []byte("s3cr3t-db-password")
	cred := NewCredential([]byte("s3cr3t-db-password"))
	defer cred.Destroy()

	locked, err := cred.Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer locked.Destroy()

	if !bytes.Equal(locked.Bytes(), expected) {
		t.Errorf("Open() = %q, want %q", locked.Bytes(), expected)
	}
}

func TestCredentialReveal(t *testing.T) {
	t.Parallel()

	cred := NewCredentialFromString("hunter2-rotated")
	defer cred.Destroy()

	got, err := cred.Reveal()
	if err != nil {
		t.Fatalf("Reveal() error = %v", err)
	}
	if got != "hunter2-rotated" {
		t.Errorf("Reveal() = %q, want %q", got, "hunter2-rotated")
	}

	// Reveal is repeatable: the enclave survives each open.
	got, err = cred.Reveal()
	if err != nil {
		t.Fatalf("second Reveal() error = %v", err)
	}
	if got != "hunter2-rotated" {
		t.Errorf("second Reveal() = %q, want %q", got, "hunter2-rotated")
	}
}

func TestCredentialDestroyIdempotent(t *testing.T) {
	t.Parallel()

	cred := NewCredentialFromString("short-lived")
	cred.Destroy()
	cred.Destroy()

	got, err := cred.Reveal()
	if err != nil {
		t.Fatalf("Reveal() after Destroy error = %v", err)
	}
	if got != "" {
		t.Errorf("Reveal() after Destroy = %q, want empty", got)
	}
}

func TestCredentialConcurrentReveal(t *testing.T) {
	t.Parallel()

	cred := NewCredentialFromString("concurrent-secret")
	defer cred.Destroy()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- true }()

			got, err := cred.Reveal()
			if err != nil {
				t.Errorf("Reveal() error = %v", err)
				return
			}
			if got != "concurrent-secret" {
				t.Errorf("Reveal() = %q, want %q", got, "concurrent-secret")
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
