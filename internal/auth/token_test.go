package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/educoin/internal/auth"
)

func newIssuer(t *testing.T, ttl time.Duration) *auth.TokenIssuer {
	t.Helper()
	hash, err := auth.HashSecret("apple")
	if err != nil {
		t.Fatal(err)
	}
	return auth.NewTokenIssuer([]byte("test-signing-key"), hash, "http://test", ttl)
}

func TestLogin_validSecret(t *testing.T) {
	issuer := newIssuer(t, time.Hour)

	tok, err := issuer.Login("Ms. Frizzle", "apple")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := issuer.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Teacher != "Ms. Frizzle" {
		t.Errorf("teacher: got %q, want %q", claims.Teacher, "Ms. Frizzle")
	}
	if claims.ID == "" {
		t.Error("expected a jti claim")
	}
}

func TestLogin_wrongSecret(t *testing.T) {
	issuer := newIssuer(t, time.Hour)
	if _, err := issuer.Login("Ms. Frizzle", "pear"); !errors.Is(err, auth.ErrBadSecret) {
		t.Errorf("got %v, want ErrBadSecret", err)
	}
}

func TestIssue_requiresTeacher(t *testing.T) {
	if _, err := newIssuer(t, time.Hour).Issue(""); err == nil {
		t.Error("expected error for empty teacher name")
	}
}

func TestVerify_expired(t *testing.T) {
	issuer := newIssuer(t, -time.Minute)
	tok, err := issuer.Issue("Ms. Frizzle")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.Verify(tok); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestVerify_wrongKey(t *testing.T) {
	tok, err := newIssuer(t, time.Hour).Issue("Ms. Frizzle")
	if err != nil {
		t.Fatal(err)
	}
	other := auth.NewTokenIssuer([]byte("another-key"), "", "http://test", time.Hour)
	if _, err := other.Verify(tok); err == nil {
		t.Error("expected token signed with another key to be rejected")
	}
}

func TestVerify_wrongIssuer(t *testing.T) {
	tok, err := newIssuer(t, time.Hour).Issue("Ms. Frizzle")
	if err != nil {
		t.Fatal(err)
	}
	other := auth.NewTokenIssuer([]byte("test-signing-key"), "", "http://elsewhere", time.Hour)
	if _, err := other.Verify(tok); err == nil {
		t.Error("expected token from another issuer to be rejected")
	}
}

func TestRequireTeacher(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := newIssuer(t, time.Hour)
	r := gin.New()
	r.GET("/x", auth.RequireTeacher(issuer), func(c *gin.Context) {
		c.String(http.StatusOK, auth.TeacherFromCtx(c).Teacher)
	})

	tok, _ := issuer.Issue("Ms. Frizzle")
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid", "Bearer " + tok, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status: got %d, want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusOK && w.Body.String() != "Ms. Frizzle" {
				t.Errorf("body: got %q", w.Body.String())
			}
		})
	}
}
