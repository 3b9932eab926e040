package google

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAudienceMatches(t *testing.T) {
	cases := []struct {
		name     string
		aud      any
		clientID string
		want     bool
	}{
		{name: "string match", aud: "client", clientID: "client", want: true},
		{name: "string mismatch", aud: "client", clientID: "other", want: false},
		{name: "slice any match", aud: []any{"other", "client"}, clientID: "client", want: true},
		{name: "slice any mismatch", aud: []any{"other", 1}, clientID: "client", want: false},
		{name: "slice string match", aud: []string{"client", "alt"}, clientID: "client", want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := audienceMatches(tc.aud, tc.clientID); got != tc.want {
				t.Fatalf("audienceMatches(%v, %q) = %v, want %v", tc.aud, tc.clientID, got, tc.want)
			}
		})
	}
}

func TestVerifyIDToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"jwks_uri": srv.URL + "/keys"})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kid": "test-key",
				"kty": "RSA",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	})

	v := NewVerifier(srv.URL, "test-client")

	sign := func(claims map[string]any) string {
		header, _ := json.Marshal(map[string]string{"alg": "RS256", "kid": "test-key"})
		payload, _ := json.Marshal(claims)
		input := base64.RawURLEncoding.EncodeToString(header) + "." + base64.RawURLEncoding.EncodeToString(payload)
		hashed := sha256.Sum256([]byte(input))
		sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, hashed[:])
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return input + "." + base64.RawURLEncoding.EncodeToString(sig)
	}

	valid := map[string]any{
		"iss":            srv.URL,
		"aud":            "test-client",
		"sub":            "google-sub-1",
		"email":          "artist@example.com",
		"email_verified": true,
		"name":           "Artist",
		"exp":            time.Now().Add(time.Hour).Unix(),
	}

	id, err := v.VerifyIDToken(context.Background(), sign(valid))
	if err != nil {
		t.Fatalf("VerifyIDToken: %v", err)
	}
	if id.Subject != "google-sub-1" || id.Email != "artist@example.com" || !id.EmailVerified {
		t.Fatalf("unexpected identity %+v", id)
	}

	wrongAud := map[string]any{}
	for k, val := range valid {
		wrongAud[k] = val
	}
	wrongAud["aud"] = "someone-else"
	if _, err := v.VerifyIDToken(context.Background(), sign(wrongAud)); err == nil {
		t.Fatal("token for another client accepted")
	}

	expired := map[string]any{}
	for k, val := range valid {
		expired[k] = val
	}
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	if _, err := v.VerifyIDToken(context.Background(), sign(expired)); err == nil {
		t.Fatal("expired token accepted")
	}

	if _, err := v.VerifyIDToken(context.Background(), "not.a.token"); err == nil {
		t.Fatal("garbage token accepted")
	}
}
