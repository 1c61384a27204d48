package notesauth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// OTPLength is the number of digits in a generated passcode
const OTPLength = 6

var otpMax = big.NewInt(1_000_000)

// GenerateOTP produces a 6-digit numeric passcode (leading zeros allowed),
// drawn uniformly from crypto/rand. A low-entropy source here would make
// codes guessable within their validity window.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashOTP hashes a passcode for storage so the plaintext code only ever
// lives in the delivery email.
func HashOTP(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash otp: %w", err)
	}
	return string(hash), nil
}

// VerifyOTPHash reports whether code matches the stored hash
func VerifyOTPHash(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
