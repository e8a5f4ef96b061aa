package jwt

import (
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Decode checks the signature and expiry of token and returns its payload.
func Decode(token string, secret string, now time.Time) (*Payload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: wrong number of segments", ErrInvalidToken)
	}

	// validate signature first, nothing else is trusted before that
	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: can't decode signature: %v", ErrInvalidToken, err)
	}
	if !hmac.Equal(sign(parts[0]+"."+parts[1], secret), signature) {
		return nil, fmt.Errorf("%w: invalid signature", ErrInvalidToken)
	}

	// payload
	payloadJson, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: can't decode payload: %v", ErrInvalidToken, err)
	}
	var payload Payload
	if err := json.Unmarshal(payloadJson, &payload); err != nil {
		return nil, fmt.Errorf("%w: can't unmarshal payload: %v", ErrInvalidToken, err)
	}

	if payload.ExpiresAt != 0 && now.Unix() >= payload.ExpiresAt {
		return nil, ErrExpired
	}
	return &payload, nil
}
