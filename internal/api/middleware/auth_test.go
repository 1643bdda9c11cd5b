package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/auth"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

func newAuthRouter(v TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Auth(v), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})
	return r
}

func TestAuth_Header(t *testing.T) {
	r := newAuthRouter(MockVerifier{})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid", "Bearer user-1", http.StatusOK, "user-1"},
		{"lowercase scheme", "bearer user-2", http.StatusOK, "user-2"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic dXNlcg==", http.StatusUnauthorized, ""},
		{"empty token", "Bearer  ", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func signHS256(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier("s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantID  string
		wantErr bool
	}{
		{
			name:   "valid",
			token:  signHS256(t, "s3cret", jwt.StandardClaims{Subject: "u1", ExpiresAt: time.Now().Add(time.Hour).Unix()}),
			wantID: "u1",
		},
		{
			name:    "wrong secret",
			token:   signHS256(t, "other", jwt.StandardClaims{Subject: "u1"}),
			wantErr: true,
		},
		{
			name:    "expired",
			token:   signHS256(t, "s3cret", jwt.StandardClaims{Subject: "u1", ExpiresAt: time.Now().Add(-time.Hour).Unix()}),
			wantErr: true,
		},
		{
			name:    "missing subject",
			token:   signHS256(t, "s3cret", jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()}),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not.a.jwt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Verify(context.Background(), tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Fatalf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("id = %q, want %q", id, tt.wantID)
			}
		})
	}

	if _, err := NewJWTVerifier(""); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestAuth_WithJWTVerifier(t *testing.T) {
	v, _ := NewJWTVerifier("s3cret")
	r := newAuthRouter(v)

	req := httptest.NewRequest("GET", "/me", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+signHS256(t, "s3cret", jwt.StandardClaims{Subject: "alice"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "alice" {
		t.Fatalf("got %d %q, want 200 alice", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/me", http.NoBody)
	req.Header.Set("Authorization", "Bearer alice")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("raw user id must not pass jwt auth, got %d", w.Code)
	}
}

type fakeIDTokens map[string]string

func (f fakeIDTokens) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	uid, ok := f[idToken]
	if !ok {
		return nil, errors.New("ID token has invalid signature")
	}
	return &auth.Token{UID: uid}, nil
}

func TestFirebaseVerifier(t *testing.T) {
	v := &FirebaseVerifier{client: fakeIDTokens{"good-token": "firebase-uid-1", "anon": ""}}

	id, err := v.Verify(context.Background(), "good-token")
	if err != nil || id != "firebase-uid-1" {
		t.Fatalf("Verify() = %q, %v", id, err)
	}
	if _, err := v.Verify(context.Background(), "forged"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := v.Verify(context.Background(), "anon"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for empty uid, got %v", err)
	}
}
