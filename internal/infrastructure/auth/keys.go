package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

const generatedKeyBits = 2048

// LoadRSAPrivateKeyFromPEM accepts PKCS#1 and PKCS#8 encoded RSA keys.
func LoadRSAPrivateKeyFromPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("PEM is not an RSA private key")
	}
	return key, nil
}

// LoadSigningKey reads the key at path. An empty path yields a fresh key and generated=true;
// tokens signed with it do not survive a restart.
func LoadSigningKey(path string) (key *rsa.PrivateKey, generated bool, err error) {
	if path == "" {
		key, err = rsa.GenerateKey(rand.Reader, generatedKeyBits)
		return key, true, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read signing key: %w", err)
	}
	key, err = LoadRSAPrivateKeyFromPEM(raw)
	return key, false, err
}
