package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func newTestIssuer(t *testing.T, passcode string) *Issuer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash passcode: %v", err)
	}
	return NewIssuer("test-secret", string(hash), time.Hour)
}

func TestVerifyAndParse(t *testing.T) {
	i := newTestIssuer(t, "open-sesame")

	token, expires, err := i.Verify("open-sesame")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if time.Until(expires) <= 0 || time.Until(expires) > time.Hour {
		t.Errorf("expires = %v, want about an hour from now", expires)
	}

	claims, err := i.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Role != RoleHost {
		t.Errorf("Role = %q, want %q", claims.Role, RoleHost)
	}
}

func TestVerifyRejectsWrongPasscode(t *testing.T) {
	i := newTestIssuer(t, "open-sesame")
	for _, p := range []string{"", "open", "OPEN-SESAME"} {
		if _, _, err := i.Verify(p); !errors.Is(err, ErrInvalidPasscode) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalidPasscode", p, err)
		}
	}

	unconfigured := NewIssuer("secret", "", time.Hour)
	if _, _, err := unconfigured.Verify("anything"); !errors.Is(err, ErrInvalidPasscode) {
		t.Errorf("Verify() without a hash error = %v, want ErrInvalidPasscode", err)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	i := newTestIssuer(t, "pw")
	token, _, err := i.Verify("pw")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("foreign secret", func(t *testing.T) {
		other := NewIssuer("other-secret", "", time.Hour)
		if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		i.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { i.now = time.Now }()
		if _, err := i.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong role", func(t *testing.T) {
		claims := Claims{
			Role: "student",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := i.Parse(s); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := i.Parse("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})
}

func TestRequireHost(t *testing.T) {
	i := newTestIssuer(t, "pw")
	token, _, err := i.Verify("pw")
	if err != nil {
		t.Fatal(err)
	}

	var sawClaims bool
	h := i.RequireHost(func(w http.ResponseWriter, status int, msg string) {
		http.Error(w, msg, status)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawClaims = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sawClaims = false
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if sawClaims != (tt.want == http.StatusNoContent) {
				t.Errorf("claims in context = %v", sawClaims)
			}
		})
	}
}

func TestHashPasscode(t *testing.T) {
	hash, err := HashPasscode("pw")
	if err != nil {
		t.Fatal(err)
	}
	i := NewIssuer("s", hash, time.Minute)
	if _, _, err := i.Verify("pw"); err != nil {
		t.Errorf("Verify() with generated hash error = %v", err)
	}
}
