package jwt

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

func Encode(payload Payload, secret string) (string, error) {
	// payload
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("can't marshal payload: %w", err)
	}
	payloadBase64 := base64.RawURLEncoding.EncodeToString(payloadJson)

	// header
	headerJson, err := json.Marshal(header{Algorithm: "HS512", Type: "JWT"})
	if err != nil {
		return "", fmt.Errorf("can't marshal header: %w", err)
	}
	headerBase64 := base64.RawURLEncoding.EncodeToString(headerJson)

	// signature
	sigBase64 := base64.RawURLEncoding.EncodeToString(sign(headerBase64+"."+payloadBase64, secret))

	return fmt.Sprintf("%s.%s.%s", headerBase64, payloadBase64, sigBase64), nil
}

func sign(signingInput string, secret string) []byte {
	h := hmac.New(sha512.New, []byte(secret))
	h.Write([]byte(signingInput))
	return h.Sum(nil)
}
