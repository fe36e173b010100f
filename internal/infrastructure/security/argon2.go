package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params configures Argon2id hashing.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the OWASP baseline for Argon2id.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

var errMalformedHash = errors.New("malformed argon2id hash")

// Argon2Hasher implements ports.PasswordHasher with PHC-formatted Argon2id strings.
type Argon2Hasher struct {
	params Argon2Params
}

func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	return &Argon2Hasher{params: params}
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	enc := encodedHash{
		params: h.params,
		salt:   salt,
		key:    argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength),
	}
	return enc.String(), nil
}

// Verify recomputes the key with the parameters stored in encoded, not the hasher's own.
func (h *Argon2Hasher) Verify(password, encoded string) bool {
	enc, err := parseEncodedHash(encoded)
	if err != nil {
		return false
	}
	p := enc.params
	key := argon2.IDKey([]byte(password), enc.salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(enc.key, key) == 1
}

type encodedHash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func (e encodedHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, e.params.Memory, e.params.Iterations, e.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(e.salt),
		base64.RawStdEncoding.EncodeToString(e.key))
}

func parseEncodedHash(s string) (encodedHash, error) {
	var enc encodedHash
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return enc, errMalformedHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return enc, errMalformedHash
	}
	if version != argon2.Version {
		return enc, fmt.Errorf("unsupported argon2 version %d", version)
	}
	p := &enc.params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return enc, errMalformedHash
	}
	var err error
	if enc.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return enc, errMalformedHash
	}
	if enc.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return enc, errMalformedHash
	}
	p.SaltLength = uint32(len(enc.salt))
	p.KeyLength = uint32(len(enc.key))
	return enc, nil
}
