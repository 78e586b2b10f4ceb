package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chart-analyst-bot/internal/features/access/models"
)

type UserUpserter interface {
	Upsert(ctx context.Context, userID int64, username string) (*models.User, error)
}

// AutoCreateUser records the authenticated caller in the user registry. A
// failure is logged and does not block the request.
func AutoCreateUser(users UserUpserter, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CallerID(c)
		if !ok {
			c.Next()
			return
		}

		if _, err := users.Upsert(c.Request.Context(), id, CallerUsername(c)); err != nil {
			log.Warn().Err(err).Int64("user_id", id).Msg("Failed to auto-create user")
		}

		c.Next()
	}
}
