package rewards

import (
	"crypto/rand"
	"fmt"
)

const (
	codePrefix   = "CYPHERX"
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeSuffix   = 4
)

// NewReferralCode generates an 11-character referral code: the fixed
// product prefix plus 4 random uppercase-alphanumeric characters.
// Uniqueness is enforced by the referral_codes primary key; callers
// retry on conflict.
func NewReferralCode() (string, error) {
	buf := make([]byte, codeSuffix)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	out := make([]byte, codeSuffix)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return codePrefix + string(out), nil
}
