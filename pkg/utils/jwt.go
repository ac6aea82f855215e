package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/models"
)

// Claims is the token payload. Role rides along so middleware can gate routes
// cheaply; the auth middleware still reloads the user on every request to
// catch deletions and role changes.
type Claims struct {
	UserID uuid.UUID       `json:"userID"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// tokenIssuer signs and parses HS256 tokens with a single shared secret.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

var issuer = tokenIssuer{
	secret: []byte("change-me-in-production"),
	ttl:    24 * time.Hour,
}

// ConfigureJWT replaces the signing secret and token lifetime. An empty
// secret or a non-positive expiration leaves the current setting in place.
func ConfigureJWT(secret string, expirationHours int) {
	if secret != "" {
		issuer.secret = []byte(secret)
	}
	if expirationHours > 0 {
		issuer.ttl = time.Duration(expirationHours) * time.Hour
	}
}

func GenerateToken(user *models.User) (string, error) {
	return issuer.sign(user, time.Now())
}

func ValidateToken(tokenString string) (*Claims, error) {
	return issuer.parse(tokenString)
}

func (ti tokenIssuer) sign(user *models.User, now time.Time) (string, error) {
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID.String(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}

func (ti tokenIssuer) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
