package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token uses distinguish the two halves of a credential pair.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// Claims is the payload carried by both access and refresh tokens. The jti
// in RegisteredClaims.ID feeds the revocation denylist.
type Claims struct {
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// TokenPair is a short-lived access token plus a longer-lived refresh token,
// both bound to the same account.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// GenerateTokenPair mints signed access and refresh tokens for the user.
func GenerateTokenPair(secret string, userID uuid.UUID, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	access, err := signToken(secret, userID, TokenUseAccess, accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := signToken(secret, userID, TokenUseRefresh, refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}

func signToken(secret string, userID uuid.UUID, use string, ttl time.Duration) (string, error) {
	claims := &Claims{
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token signature, expiry and intended use, and
// returns the embedded claims.
func ParseToken(secret, tokenString, wantUse string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenUse != wantUse {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// SubjectID parses the account ID out of validated claims.
func (c *Claims) SubjectID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
