package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

// SaltSize is the size in bytes of the key derivation salt.
const SaltSize = 16

// KeySize is the size in bytes of the derived symmetric key.
const KeySize = 32

// NonceSize is the size in bytes of the per-chunk GCM nonce.
const NonceSize = 16

// TagSize is the size in bytes of the GCM authentication tag.
const TagSize = 16

// KDFIterations is the PBKDF2 iteration count.
const KDFIterations = 100000

// Overhead is the number of bytes Seal adds to a plaintext chunk.
const Overhead = NonceSize + TagSize

// ErrAuthentication indicates that a sealed chunk failed tag verification,
// meaning the data was tampered with or the password is wrong.
var ErrAuthentication = errors.New("chunk authentication failed")

// ErrSealedTooShort indicates a sealed chunk shorter than nonce plus tag.
var ErrSealedTooShort = errors.New("sealed chunk too short")

// Key is a derived 256-bit symmetric key.
type Key [KeySize]byte

// DeriveKey derives a symmetric key from a password and salt using
// PBKDF2-HMAC-SHA256. The derivation is deterministic for a fixed
// (password, salt) pair.
func DeriveKey(password string, salt []byte) Key {
	var key Key
	copy(key[:], pbkdf2.Key([]byte(password), salt, KDFIterations, KeySize, sha256.New))
	return key
}

// GenerateSalt creates a cryptographically secure random salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Seal encrypts and authenticates a plaintext chunk under key with a fresh
// random nonce. The result is nonce || tag || ciphertext.
func Seal(key Key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	// gcm.Seal appends the tag after the ciphertext; the wire format
	// carries the tag before it, so the two parts are swapped here.
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	out := make([]byte, 0, Overhead+len(ciphertext))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	return out, nil
}

// Open authenticates and decrypts a sealed chunk produced by Seal.
// It returns ErrAuthentication if the tag does not verify.
func Open(key Key, sealed []byte) ([]byte, error) {
	if len(sealed) < Overhead {
		return nil, ErrSealedTooShort
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := sealed[:NonceSize]
	tag := sealed[NonceSize:Overhead]
	ciphertext := sealed[Overhead:]

	// Rebuild the ciphertext || tag layout gcm.Open expects.
	in := make([]byte, 0, len(ciphertext)+TagSize)
	in = append(in, ciphertext...)
	in = append(in, tag...)

	plaintext, err := gcm.Open(nil, nonce, in, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}
