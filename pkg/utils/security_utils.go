package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
)

// Signature algorithms accepted for webhook payloads.
const (
	SignatureAlgSHA256 = "sha256"
	SignatureAlgSHA512 = "sha512"
)

func newSignatureHash(alg string) (func() hash.Hash, error) {
	switch alg {
	case SignatureAlgSHA256:
		return sha256.New, nil
	case SignatureAlgSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported signature algorithm %q", alg)
	}
}

// ComputeSignature returns the hex HMAC of body under secret.
func ComputeSignature(alg string, secret, body []byte) (string, error) {
	h, err := newSignatureHash(alg)
	if err != nil {
		return "", err
	}
	mac := hmac.New(h, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature checks a hex HMAC in constant time. It returns false for
// any malformed input rather than an error, so callers have exactly one
// rejection path.
func VerifySignature(alg string, secret, body []byte, signature string) bool {
	expected, err := ComputeSignature(alg, secret, body)
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(expected)
	if err != nil {
		return false
	}
	return hmac.Equal(got, want)
}
