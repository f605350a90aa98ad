package server

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"github.com/tansive/specstudio/internal/common/uuid"
)

const (
	cookieIssuer  = "specstudio"
	cookieKeyInfo = "specstudio session cookie v1"
)

// sessionCookies signs the session identity into a browser-session cookie. The
// signature protects integrity only; sessions stay anonymous.
type sessionCookies struct {
	name string
	key  []byte
	now  func() time.Time
}

// newSessionCookies derives the signing key from secret. An empty secret yields a random
// key, so cookies do not survive a restart.
func newSessionCookies(name, secret string) (*sessionCookies, error) {
	ikm := []byte(secret)
	if secret == "" {
		ikm = make([]byte, 32)
		if _, err := rand.Read(ikm); err != nil {
			return nil, err
		}
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, []byte(cookieIssuer), []byte(cookieKeyInfo)), key); err != nil {
		return nil, err
	}
	return &sessionCookies{
		name: name,
		key:  key,
		now:  time.Now,
	}, nil
}

// Identity returns the session identity carried by r, or "" when the cookie is absent,
// tampered with or malformed.
func (c *sessionCookies) Identity(r *http.Request) string {
	ck, err := r.Cookie(c.name)
	if err != nil || ck.Value == "" {
		return ""
	}
	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(ck.Value, claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return ""
	}
	if !uuid.IsSessionID(claims.Subject) {
		return ""
	}
	return claims.Subject
}

// Cookie returns the cookie that carries id.
func (c *sessionCookies) Cookie(id string) (*http.Cookie, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:   cookieIssuer,
		Subject:  id,
		IssuedAt: jwt.NewNumericDate(c.now()),
	})
	signed, err := token.SignedString(c.key)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     c.name,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}
