package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pagetags/apperrors"
)

var (
	ErrInvalidToken = apperrors.New(apperrors.CodeUnauthorized, "invalid token")
	ErrExpiredToken = apperrors.New(apperrors.CodeTokenExpired, "token expired")
)

// Claims identify the user and the jti the token was issued against.
type Claims struct {
	Identity uint `json:"identity"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. An expiry of zero issues tokens that
// never expire; rotating the user's jti is then the only way to revoke them.
func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Issue signs a token for userID bound to jti.
func (i *TokenIssuer) Issue(userID uint, jti string) (string, error) {
	return i.IssueUntil(userID, jti, time.Time{})
}

// IssueUntil is Issue with an explicit expiry time. A zero time falls back
// to the issuer's configured expiry.
func (i *TokenIssuer) IssueUntil(userID uint, jti string, expiresAt time.Time) (string, error) {
	now := i.now()

	claims := &Claims{
		Identity: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	switch {
	case !expiresAt.IsZero():
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	case i.expiry > 0:
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.expiry))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse verifies the signature and time claims of tokenString. It does not
// check the jti against the user; callers do that with the store.
func (i *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Identity == 0 || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
