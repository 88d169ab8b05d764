package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the access token payload.
//
// Issuing tokens belongs to the external session layer; this service only
// validates them (and mints them for the developer tool).
type TokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
