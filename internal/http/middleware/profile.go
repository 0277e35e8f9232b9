package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/gigpay/internal/model"
)

const profileContextKey = "gigpay.profile"

// ProfileResolver resolves a caller id to its ledger profile.
type ProfileResolver interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error)
}

// Profile resolves the trusted profile_id header into a Profile and
// stores it on the request context. The header value is the caller's
// identity; there is no token to verify.
func Profile(resolver ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("profile_id"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing profile_id header"})
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid profile_id header"})
			return
		}

		profile, err := resolver.GetProfile(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "profile not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(profileContextKey, *profile)
		c.Next()
	}
}

// MustProfile returns the profile placed on the context by Profile.
func MustProfile(c *gin.Context) (model.Profile, bool) {
	value, exists := c.Get(profileContextKey)
	if !exists {
		return model.Profile{}, false
	}
	profile, ok := value.(model.Profile)
	return profile, ok
}
