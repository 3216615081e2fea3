package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	accessTTL  = 72 * time.Hour
	refreshTTL = 30 * 24 * time.Hour

	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Kind     string `json:"typ"`
	jwt.RegisteredClaims
}

// Tokens issues and checks HS256 tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Issue returns a new access and refresh token pair.
func (t *Tokens) Issue(userID, username string) (string, string, error) {
	access, err := t.sign(userID, username, tokenAccess, accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := t.sign(userID, username, tokenRefresh, refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (t *Tokens) sign(userID, username, kind string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return s, nil
}

// Validate checks an access token.
func (t *Tokens) Validate(token string) (*Claims, error) {
	return t.parse(token, tokenAccess)
}

func (t *Tokens) ValidateRefresh(token string) (*Claims, error) {
	return t.parse(token, tokenRefresh)
}

func (t *Tokens) parse(tokenString, kind string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if !token.Valid || claims.Kind != kind || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
