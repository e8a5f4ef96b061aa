// Package jwt signs and checks the session tokens handed to the dashboard.
package jwt

import "errors"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpired      = errors.New("token expired")
)

type header struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
}

// Payload is the signed part of a token. Original is set while a super
// admin impersonates another user and holds the admin's own identity.
type Payload struct {
	UserID     string   `json:"id"`
	UserName   string   `json:"name"`
	Email      string   `json:"email"`
	Role       string   `json:"role"`
	TenantID   string   `json:"tenantId,omitempty"`
	SuperAdmin bool     `json:"superAdmin,omitempty"`
	Original   *Payload `json:"original,omitempty"`
	IssuedAt   int64    `json:"iat"`
	ExpiresAt  int64    `json:"exp"`
}
