package utils // package utils provides token signing, hashing and credential checks

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/antonkondratyev/api-universal/internal/config"
	"github.com/antonkondratyev/api-universal/internal/model"
)

// ErrUnauthorized is the single outcome of every failed verification:
// expired, malformed, wrongly signed and wrong-algorithm tokens are not
// distinguished.
var ErrUnauthorized = errors.New("unauthorized")

// Claims is the JWT body of both token kinds. Subject carries the user id,
// Name the user name; ID is a random jti so tokens issued within the same
// second still differ.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access and refresh tokens. Each kind has
// its own secret and lifetime.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenIssuer builds an issuer from the token configuration.
func NewTokenIssuer(cfg config.TokenConfig) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

// Issue signs a new access/refresh pair for the given user summary.
func (ti *TokenIssuer) Issue(u model.UserSummary) (model.TokenPair, error) {
	access, err := sign(ti.accessSecret, u, ti.now(), ti.accessTTL)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := sign(ti.refreshSecret, u, ti.now(), ti.refreshTTL)
	if err != nil {
		return model.TokenPair{}, err
	}
	return model.TokenPair{Access: access, Refresh: refresh}, nil
}

// VerifyAccess decodes an access token.
func (ti *TokenIssuer) VerifyAccess(raw string) (model.UserSummary, error) {
	return verify(ti.accessSecret, raw, ti.now)
}

// VerifyRefresh decodes a refresh token.
func (ti *TokenIssuer) VerifyRefresh(raw string) (model.UserSummary, error) {
	return verify(ti.refreshSecret, raw, ti.now)
}

func sign(secret []byte, u model.UserSummary, now time.Time, ttl time.Duration) (string, error) {
	now = now.UTC()
	claims := Claims{
		Name: u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// verify is a pure function of the secret, the token and the clock.
func verify(secret []byte, raw string, now func() time.Time) (model.UserSummary, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil || !tok.Valid {
		return model.UserSummary{}, ErrUnauthorized
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return model.UserSummary{}, ErrUnauthorized
	}
	return model.UserSummary{ID: uint(id), Name: claims.Name}, nil
}

// HashRefreshRaw returns the SHA-256 hash of the raw refresh token as a hex
// string. Only this hash is stored, so a leaked tokens table cannot be
// replayed against the refresh endpoint.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
