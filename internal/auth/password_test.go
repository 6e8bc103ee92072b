package auth

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		cost     int
		wantErr  error
	}{
		{
			name:     "valid password",
			password: "validpassword123",
			cost:     4,
			wantErr:  nil,
		},
		{
			name:     "password too short",
			password: "short",
			cost:     4,
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "password at minimum length",
			password: "12345678",
			cost:     4,
			wantErr:  nil,
		},
		{
			name:     "password too long",
			password: strings.Repeat("a", 73),
			cost:     4,
			wantErr:  ErrPasswordTooLong,
		},
		{
			name:     "password at maximum length",
			password: strings.Repeat("a", 72),
			cost:     4,
			wantErr:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, tt.cost)
			if err != tt.wantErr {
				t.Errorf("HashPassword() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr == nil && hash == "" {
				t.Error("HashPassword() returned empty hash for valid password")
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse", 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if err := CheckPassword("correct-horse", hash); err != nil {
		t.Errorf("CheckPassword(correct) error = %v", err)
	}
	if err := CheckPassword("wrong-horse", hash); err != ErrInvalidPassword {
		t.Errorf("CheckPassword(wrong) error = %v, want ErrInvalidPassword", err)
	}
}

func TestGeneratePassword(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"default length", 0, DefaultGeneratedPasswordLength},
		{"raised to minimum", 3, MinPasswordLength},
		{"custom length", 16, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				pw, err := GeneratePassword(tt.length)
				if err != nil {
					t.Fatalf("GeneratePassword() error = %v", err)
				}
				if len(pw) != tt.want {
					t.Fatalf("len = %d, want %d", len(pw), tt.want)
				}
				if !strings.ContainsAny(pw, passwordDigits) {
					t.Fatalf("password %q has no digit", pw)
				}
				if !strings.ContainsAny(pw, passwordSymbols) {
					t.Fatalf("password %q has no symbol", pw)
				}
				for _, r := range pw {
					if !strings.ContainsRune(passwordAlphabet, r) {
						t.Fatalf("password %q has unexpected character %q", pw, r)
					}
				}
			}
		})
	}
}

func TestGeneratePassword_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		pw, err := GeneratePassword(12)
		if err != nil {
			t.Fatalf("GeneratePassword() error = %v", err)
		}
		if seen[pw] {
			t.Fatalf("duplicate password generated: %s", pw)
		}
		seen[pw] = true
	}
}

func TestGenerateSessionSecret(t *testing.T) {
	secret, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("GenerateSessionSecret() error = %v", err)
	}
	if len(secret) != 64 {
		t.Errorf("secret length = %d, want 64", len(secret))
	}
}
