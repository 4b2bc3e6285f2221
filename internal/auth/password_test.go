package auth

import (
	"encoding/base64"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	encoded, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(encoded); err != nil {
		t.Fatalf("expected base64 output: %v", err)
	}
	if err := CheckPassword(encoded, "hunter2"); err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if err := CheckPassword(encoded, "wrong"); err != ErrPasswordMismatch {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCheckPassword_NotBase64(t *testing.T) {
	if err := CheckPassword("%%%", "x"); err != ErrPasswordMismatch {
		t.Fatalf("expected mismatch, got %v", err)
	}
}
