// utils/otp.go
package utils

import (
	"crypto/rand"
	"math/big"
)

// GenerateSecureOTP returns a six-digit numeric code from crypto/rand.
func GenerateSecureOTP() (string, error) {
	const digits = 6
	code := make([]byte, digits)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
