package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/docchat/backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSubject is returned by Parse for a well-signed token without "sub".
var ErrMissingSubject = errors.New("token has no subject")

// Issuer signs and verifies access tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an Issuer from the JWT settings. The algorithm must be one of
// HS256, HS384 or HS512 (config.Validate enforces this).
func NewIssuer(cfg config.JWTConfig) (*Issuer, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	return &Issuer{secret: []byte(cfg.Secret), method: method, ttl: cfg.AccessTokenTTL, now: time.Now}, nil
}

// Claims carries the subject and expiry of an access token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Issue creates a signed access token {sub, exp} for subject.
func (i *Issuer) Issue(subject string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(i.now().Add(i.ttl)),
	}
	jt := jwt.NewWithClaims(i.method, claims)
	return jt.SignedString(i.secret)
}

// Parse verifies signature, algorithm and expiry and returns the claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &rc, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	if rc.Subject == "" {
		return nil, ErrMissingSubject
	}
	return &Claims{Subject: rc.Subject, ExpiresAt: rc.ExpiresAt.Time}, nil
}
