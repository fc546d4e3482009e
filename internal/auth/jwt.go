package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	purposeSession       = "session"
	purposeResetPassword = "reset-password"
)

var jwtSecret []byte

// ErrWrongPurpose is returned when a valid token is presented for the wrong use
var ErrWrongPurpose = errors.New("token issued for another purpose")

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	UserID  string `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// InitializeJWT sets the JWT secret key
func InitializeJWT(secret string) {
	jwtSecret = []byte(secret)
}

// GenerateToken creates a session token for a user that expires after ttl
func GenerateToken(userID string, ttl time.Duration) (string, error) {
	return sign(JWTClaims{UserID: userID, Purpose: purposeSession}, ttl)
}

// ValidateToken validates a session token and returns its claims
func ValidateToken(tokenString string) (*JWTClaims, error) {
	claims, err := parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purposeSession {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

// GenerateResetToken creates a password recovery token bound to email
func GenerateResetToken(email string, ttl time.Duration) (string, error) {
	return sign(JWTClaims{Email: email, Purpose: purposeResetPassword}, ttl)
}

// ValidateResetToken returns the email a recovery token was issued for
func ValidateResetToken(tokenString string) (string, error) {
	claims, err := parse(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Purpose != purposeResetPassword || claims.Email == "" {
		return "", ErrWrongPurpose
	}
	return claims.Email, nil
}

func sign(claims JWTClaims, ttl time.Duration) (string, error) {
	if len(jwtSecret) == 0 {
		return "", fmt.Errorf("JWT secret not initialized")
	}

	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func parse(tokenString string) (*JWTClaims, error) {
	if len(jwtSecret) == 0 {
		return nil, fmt.Errorf("JWT secret not initialized")
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
