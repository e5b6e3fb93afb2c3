package tokens

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/docchat/backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

func newIssuer(t *testing.T, secret, alg string, ttl time.Duration) *Issuer {
	t.Helper()
	iss, err := NewIssuer(config.JWTConfig{Secret: secret, Algorithm: alg, AccessTokenTTL: ttl})
	if err != nil {
		t.Fatalf("NewIssuer error: %v", err)
	}
	return iss
}

func TestIssue_ValidAndClaims(t *testing.T) {
	iss := newIssuer(t, "test-secret-32-bytes-should-be-long-enough", "HS256", 2*time.Minute)

	tokenStr, err := iss.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := iss.Parse(tokenStr)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if claims.Subject != "user@example.com" {
		t.Fatalf("unexpected sub claim: %v", claims.Subject)
	}
	if d := time.Until(claims.ExpiresAt); d <= 0 || d > 2*time.Minute {
		t.Fatalf("unexpected expiry: %v", claims.ExpiresAt)
	}
}

func TestIssue_HonoursAlgorithm(t *testing.T) {
	iss := newIssuer(t, "secret-384", "HS384", time.Minute)
	tokenStr, err := iss.Issue("a@b.c")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		t.Fatalf("ParseUnverified error: %v", err)
	}
	if parsed.Method.Alg() != "HS384" {
		t.Fatalf("unexpected alg %s", parsed.Method.Alg())
	}

	// an HS256 issuer with the same secret must not accept it
	other := newIssuer(t, "secret-384", "HS256", time.Minute)
	if _, err := other.Parse(tokenStr); err == nil {
		t.Fatalf("expected algorithm mismatch to be rejected")
	}
}

func TestNewIssuer_RejectsNonHMAC(t *testing.T) {
	if _, err := NewIssuer(config.JWTConfig{Secret: "x", Algorithm: "RS256", AccessTokenTTL: time.Minute}); err == nil {
		t.Fatalf("expected RS256 to be rejected")
	}
	if _, err := NewIssuer(config.JWTConfig{Secret: "x", Algorithm: "nope", AccessTokenTTL: time.Minute}); err == nil {
		t.Fatalf("expected unknown algorithm to be rejected")
	}
}

func TestParse_Expired(t *testing.T) {
	iss := newIssuer(t, "another-secret-32-bytes-longgggg", "HS256", time.Minute)
	base := time.Now()
	iss.now = func() time.Time { return base }
	tokenStr, err := iss.Issue("u2@x.io")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	iss.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := iss.Parse(tokenStr); err == nil {
		t.Fatalf("expected token parse to fail after expiry")
	}
}

func TestParse_WrongSecretFails(t *testing.T) {
	a := newIssuer(t, "secret-one-32-bytes-xxxxxxxxxxxxxxxx", "HS256", 2*time.Minute)
	b := newIssuer(t, "different-secret-xxxxxxxxxxxxxxxx", "HS256", 2*time.Minute)
	tokenStr, err := a.Issue("bob@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := b.Parse(tokenStr); err == nil {
		t.Fatalf("expected parse to fail with wrong secret")
	}
}

func TestParse_Malformed(t *testing.T) {
	iss := newIssuer(t, "x", "HS256", time.Minute)
	for _, raw := range []string{"", "not.a.jwt", "abc"} {
		if _, err := iss.Parse(raw); err == nil {
			t.Fatalf("expected parse to fail for %q", raw)
		}
	}
}

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

// Rejected when alg=none (unsigned token)
func TestParse_AlgNoneRejected(t *testing.T) {
	iss := newIssuer(t, "x", "HS256", time.Minute)
	tok := segment(`{"alg":"none","typ":"JWT"}`) + "." + segment(`{"sub":"u-none","exp":9999999999}`) + "."
	if _, err := iss.Parse(tok); err == nil {
		t.Fatalf("expected parse to reject alg=none token")
	}
}

func TestParse_MissingSubjectOrExpiry(t *testing.T) {
	iss := newIssuer(t, "subject-secret", "HS256", time.Minute)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()}).
		SignedString([]byte("subject-secret"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := iss.Parse(noSub); err != ErrMissingSubject {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "a@b.c"}).
		SignedString([]byte("subject-secret"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := iss.Parse(noExp); err == nil {
		t.Fatalf("expected token without exp to be rejected")
	}
}

// Tampering with payload must fail signature verification
func TestParse_TamperedPayload(t *testing.T) {
	iss := newIssuer(t, "tamper-test-secret-32-bytes-xxxxxxx", "HS256", 5*time.Minute)
	tokenStr, err := iss.Issue("user-t@x.io")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token parts")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	parts[1] = segment(strings.Replace(string(payload), "user-t", "attacker", 1))
	if _, err := iss.Parse(strings.Join(parts, ".")); err == nil {
		t.Fatalf("expected signature verification to fail for tampered token")
	}
}
