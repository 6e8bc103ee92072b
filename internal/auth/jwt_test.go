package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mrlokans/library-manager/internal/entities"
)

func testUser(id uint, login string, role entities.UserRole) *entities.User {
	return &entities.User{ID: id, LoginID: &login, Email: login + "@example.com", Role: role, IsApproved: true}
}

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret-key"), "library-manager", time.Hour)

	token, expiresAt, err := issuer.Issue(testUser(7, "S1001", entities.UserRoleStudent))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 59*time.Minute {
		t.Errorf("unexpected expiry %v", expiresAt)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UID != 7 {
		t.Errorf("UID = %d, want 7", claims.UID)
	}
	if claims.LoginID != "S1001" {
		t.Errorf("LoginID = %s, want S1001", claims.LoginID)
	}
	if claims.Role != entities.UserRoleStudent {
		t.Errorf("Role = %s, want Student", claims.Role)
	}
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret-key"), "library-manager", time.Hour)
	user := testUser(7, "S1001", entities.UserRoleStudent)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer([]byte("another-secret"), "library-manager", time.Hour)
		token, _, _ := other.Issue(user)
		if _, err := issuer.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenIssuer([]byte("test-secret-key"), "someone-else", time.Hour)
		token, _, _ := other.Issue(user)
		if _, err := issuer.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		past := NewTokenIssuer([]byte("test-secret-key"), "library-manager", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, _ := past.Issue(user)
		if _, err := issuer.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UID: 7, RegisteredClaims: jwt.RegisteredClaims{Issuer: "library-manager"}})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		if _, err := issuer.Parse(signed); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := issuer.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})
}
