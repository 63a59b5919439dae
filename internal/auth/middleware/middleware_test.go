package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	auth "github.com/psicodata/scoring-engine/internal/auth/middleware"
	"github.com/psicodata/scoring-engine/internal/rbac"
)

func TestIssueParse_RoundTrip(t *testing.T) {
	svc := auth.NewAuthService("test-secret")
	tok, err := svc.IssueJWT("dr.garcia", "clinician")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := svc.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Sub != "dr.garcia" || c.Role != "clinician" {
		t.Fatalf("claims = %+v", c)
	}
}

func TestParse_WrongSecretRejected(t *testing.T) {
	tok, err := auth.NewAuthService("secret-a").IssueJWT("u", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := auth.NewAuthService("secret-b").Parse(tok); err == nil {
		t.Fatalf("expected parse failure with wrong secret")
	}
}

func TestLoginHandler(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	svc := auth.NewAuthService("test-secret")
	h := auth.LoginHandler(svc, map[string]auth.Credential{
		"admin": {PassHash: string(hash), Role: "admin"},
	})

	body := `{"username":"admin","password":"s3cret"}`
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte(body))))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out["access_token"] == "" {
		t.Fatalf("body: %v %q", err, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest("POST", "/auth/login",
		bytes.NewReader([]byte(`{"username":"admin","password":"wrong"}`))))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", rec.Code)
	}
}

func TestJWTMiddleware_SetsRole(t *testing.T) {
	svc := auth.NewAuthService("test-secret")
	tok, _ := svc.IssueJWT("u1", "reviewer")

	var gotSub, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = auth.SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	})
	h := auth.JWTMiddleware(svc)(next)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if gotSub != "u1" || gotRole != "reviewer" {
		t.Fatalf("sub=%q role=%q", gotSub, gotRole)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing bearer status = %d", rec.Code)
	}
}
