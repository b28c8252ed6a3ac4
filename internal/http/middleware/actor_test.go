package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"schoolbus/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "rahasia-test"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("gagal sign token: %v", err)
	}
	return s
}

func runActor(t *testing.T, authHeader string) (domain.Actor, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var got domain.Actor
	var ok bool
	r := gin.New()
	r.Use(Actor(testSecret))
	r.GET("/x", func(c *gin.Context) {
		got, ok = GetActor(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return got, ok
}

func TestActorParsesValidToken(t *testing.T) {
	tok := signToken(t, testSecret, jwt.MapClaims{
		"user_id": "admin-1",
		"name":    "Bu Sari",
		"role":    "operator",
	})
	actor, ok := runActor(t, "Bearer "+tok)
	if !ok {
		t.Fatalf("actor harus ada di context")
	}
	if actor.ID != "admin-1" || actor.Name != "Bu Sari" || actor.Role != "operator" {
		t.Fatalf("actor salah: %+v", actor)
	}
}

func TestActorNumericUserID(t *testing.T) {
	tok := signToken(t, testSecret, jwt.MapClaims{"user_id": float64(42)})
	actor, ok := runActor(t, "Bearer "+tok)
	if !ok || actor.ID != "42" {
		t.Fatalf("user_id numerik harus jadi string: %+v ok=%v", actor, ok)
	}
}

func TestActorMissingOrBadTokenPassesThrough(t *testing.T) {
	if _, ok := runActor(t, ""); ok {
		t.Fatalf("tanpa header tidak boleh ada actor")
	}
	if _, ok := runActor(t, "Bearer bukan.token.valid"); ok {
		t.Fatalf("token rusak tidak boleh menghasilkan actor")
	}
	wrong := signToken(t, "secret-lain", jwt.MapClaims{"user_id": "admin-1"})
	if _, ok := runActor(t, "Bearer "+wrong); ok {
		t.Fatalf("token dengan secret salah harus ditolak")
	}
}
