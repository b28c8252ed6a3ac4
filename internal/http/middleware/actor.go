package middleware

import (
	"strconv"
	"strings"

	"schoolbus/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const actorKey = "actor"

// Actor adalah identity check eksternal: memverifikasi bearer token (diterbitkan
// service auth terpisah) dan menaruh id/nama/role aktor di context. Request
// tanpa token tetap lewat; handler yang butuh aktor fallback ke body.
func Actor(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(raw, "Bearer ") {
			c.Next()
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(raw, "Bearer "), func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			c.Next()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.Next()
			return
		}

		actor := domain.Actor{}
		switch v := claims["user_id"].(type) {
		case string:
			actor.ID = strings.TrimSpace(v)
		case float64:
			// angka di MapClaims selalu float64
			actor.ID = strconv.FormatInt(int64(v), 10)
		}
		if v, ok := claims["name"].(string); ok {
			actor.Name = v
		}
		if v, ok := claims["role"].(string); ok {
			actor.Role = v
		}
		if actor.ID != "" {
			c.Set(actorKey, actor)
		}
		c.Next()
	}
}

// GetActor extracts the authenticated actor from gin context when available.
func GetActor(c *gin.Context) (domain.Actor, bool) {
	if c == nil {
		return domain.Actor{}, false
	}
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(domain.Actor); ok {
			return a, true
		}
	}
	return domain.Actor{}, false
}
