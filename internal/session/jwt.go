package session

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"

	"github.com/workergo/portal/internal/identity"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// Aliasing it so we can use it in the struct literal for composition
type jwtRegisteredClaims = jwt.RegisteredClaims

type jwtClaims struct {
	persisted
	jwtRegisteredClaims
}

// JWTCodec signs the session so it can sit in a cookie without the browser
// being able to change its role. Tokens past Lifetime are malformed.
type JWTCodec struct {
	Secret   []byte
	Lifetime time.Duration
}

func (j *JWTCodec) Encode(id identity.Identity) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}

	now := time.Now()
	claims := &jwtClaims{
		persisted: persisted{
			Version: SchemaVersion,
			Email:   id.Email,
			Role:    id.Role.String(),
		},
		jwtRegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.Lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString(j.Secret)
	if err != nil {
		return "", fmt.Errorf("couldn't sign session JWT: %v", err)
	}

	return signed, nil
}

func (j *JWTCodec) Decode(raw string) (identity.Identity, error) {
	decoder := jwt.NewParser(jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}))

	claims := new(jwtClaims)

	token, err := decoder.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return j.Secret, nil
	})
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !token.Valid {
		return identity.Identity{}, fmt.Errorf("%w: invalid token", ErrMalformed)
	}

	return claims.persisted.identity()
}
