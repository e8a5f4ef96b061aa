package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecode(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	payload := Payload{
		UserID:    "3",
		UserName:  "Attendee User",
		Email:     "me@x.com",
		Role:      "attendee",
		Original:  &Payload{UserID: "1", UserName: "Admin User", Role: "admin", SuperAdmin: true},
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
	token, err := Encode(payload, "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(token, ".") != 2 || strings.ContainsAny(token, "+/=") {
		t.Errorf("token is not url safe: %s", token)
	}

	got, err := Decode(token, "s3cret", now)
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != "3" || got.Original == nil || !got.Original.SuperAdmin {
		t.Errorf("payload = %+v", got)
	}

	if _, err := Decode(token, "other", now); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: %v", err)
	}
	if _, err := Decode(token, "s3cret", now.Add(time.Hour)); !errors.Is(err, ErrExpired) {
		t.Errorf("expired: %v", err)
	}

	parts := strings.Split(token, ".")
	forged, _ := Encode(Payload{UserID: "1", Role: "admin"}, "s3cret")
	tampered := parts[0] + "." + strings.Split(forged, ".")[1] + "." + parts[2]
	if _, err := Decode(tampered, "s3cret", now); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("tampered payload: %v", err)
	}
	for _, bad := range []string{"", "a.b", "a.b.c", "a.b.!!!"} {
		if _, err := Decode(bad, "s3cret", now); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%q: %v", bad, err)
		}
	}
}
