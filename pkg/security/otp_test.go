package security

import (
	"testing"
)

func TestGenerateOTPCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateOTPCode(6)
		if err != nil {
			t.Fatalf("generate otp: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("codes are not varying")
	}
}

func TestGenerateOTPCodeInvalidDigits(t *testing.T) {
	if _, err := GenerateOTPCode(0); err == nil {
		t.Fatal("expected error for zero digits")
	}
	if _, err := GenerateOTPCode(11); err == nil {
		t.Fatal("expected error for too many digits")
	}
}
