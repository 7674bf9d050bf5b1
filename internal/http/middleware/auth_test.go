package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, role, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func requireRoleProbe(secret string, roles ...string) (*httptest.Server, *Identity) {
	var seen Identity
	handler := RequireRole(secret, roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := IdentityFromContext(r.Context()); ok {
			seen = id
		}
		w.WriteHeader(http.StatusOK)
	}))
	return httptest.NewServer(handler), &seen
}

func getWithToken(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	resp.Body.Close()
	return resp
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	srv, seen := requireRoleProbe(testSecret, "patient")
	defer srv.Close()

	subject := uuid.New()
	resp := getWithToken(t, srv.URL, signToken(t, testSecret, "patient", subject.String()))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if seen.SubjectID != subject || seen.Role != "patient" {
		t.Fatalf("unexpected identity %+v", seen)
	}
}

func TestRequireRoleRejectsWrongRole(t *testing.T) {
	srv, _ := requireRoleProbe(testSecret, "doctor")
	defer srv.Close()

	resp := getWithToken(t, srv.URL, signToken(t, testSecret, "patient", uuid.New().String()))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestRequireRoleRejectsBadTokens(t *testing.T) {
	srv, _ := requireRoleProbe(testSecret, "patient")
	defer srv.Close()

	cases := map[string]string{
		"missing header":  "",
		"wrong secret":    signToken(t, "other-secret", "patient", uuid.New().String()),
		"garbage subject": signToken(t, testSecret, "patient", "not-a-uuid"),
	}
	for name, token := range cases {
		resp := getWithToken(t, srv.URL, token)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, resp.StatusCode)
		}
	}
}

func TestRequireRoleRejectsExpiredToken(t *testing.T) {
	srv, _ := requireRoleProbe(testSecret, "patient")
	defer srv.Close()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "patient",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	resp := getWithToken(t, srv.URL, signed)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
