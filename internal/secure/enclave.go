// Package secure holds rotating credentials in protected memory.
//
// A credential spends most of its life at rest between two uses: the fetch
// that resolved it and the reconnect that consumes it. This package keeps it
// encrypted during that window by wrapping memguard: the plaintext lives in
// an enclave (XSalsa20Poly1305, mlock'd, guard pages) and only exists in the
// clear inside a locked buffer the caller destroys after use.
//
// If mlock is unavailable (RLIMIT_MEMLOCK on Linux), memguard degrades to
// standard allocation rather than failing; core dumps and swap still benefit
// from the at-rest encryption.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Credential is an encrypted-at-rest container for a single secret value,
// typically the store password most recently resolved from the secret
// provider. It is safe for concurrent use.
type Credential struct {
	enclave *memguard.Enclave

	mu sync.RWMutex
	// destroyed makes Destroy idempotent and turns later Reveal calls
	// into empty results instead of a panic inside memguard.
	destroyed bool
}

// NewCredential seals value into protected memory. The input slice is
// consumed by memguard and wiped; callers must not reuse it.
func NewCredential(value []byte) *Credential {
	return &Credential{enclave: memguard.NewEnclave(value)}
}

// NewCredentialFromString seals a string value. Go strings are immutable so
// the original cannot be wiped; prefer NewCredential when the caller holds
// bytes.
func NewCredentialFromString(value string) *Credential {
	return NewCredential([]byte(value))
}

// Open decrypts the credential into a locked buffer. The caller must call
// Destroy on the returned buffer once finished with the plaintext.
func (c *Credential) Open() (*memguard.LockedBuffer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.destroyed {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return c.enclave.Open()
}

// Reveal returns the plaintext as a string for call sites that hand the
// secret straight to a driver DSN. The intermediate locked buffer is wiped
// before returning; the returned string is ordinary Go memory.
func (c *Credential) Reveal() (string, error) {
	locked, err := c.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()
	// string(Bytes()) copies; LockedBuffer.String would alias memory that
	// the deferred Destroy wipes.
	return string(locked.Bytes()), nil
}

// Destroy drops the enclave and marks the credential unusable. Idempotent.
// The encrypted payload needs no explicit wipe; memguard.Purge at process
// exit clears the session key for everything at once.
func (c *Credential) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return
	}
	c.enclave = nil
	c.destroyed = true
}
