package notesauth_test

import (
	"testing"

	na "github.com/panyam/notesauth"
)

func TestGenerateOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := na.GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP failed: %v", err)
		}
		if len(code) != na.OTPLength {
			t.Fatalf("Expected %d digits, got %q", na.OTPLength, code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("Expected numeric code, got %q", code)
			}
		}
		seen[code] = true
	}
	// 50 draws from 10^6 repeating every time would mean a broken source
	if len(seen) < 2 {
		t.Errorf("Expected varied codes, got %d distinct", len(seen))
	}
}

func TestHashOTP(t *testing.T) {
	hash, err := na.HashOTP("123456")
	if err != nil {
		t.Fatalf("HashOTP failed: %v", err)
	}
	if hash == "123456" {
		t.Error("Hash should not equal the plaintext code")
	}
	if !na.VerifyOTPHash(hash, "123456") {
		t.Error("Expected matching code to verify")
	}
	if na.VerifyOTPHash(hash, "000000") {
		t.Error("Expected mismatched code to fail verification")
	}
}
