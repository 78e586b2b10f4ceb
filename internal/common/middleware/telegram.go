package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"chart-analyst-bot/internal/common/errors"
)

const (
	usernameKey = "username"

	// InitDataHeader carries the raw Mini App init data.
	InitDataHeader = "X-Telegram-Init-Data"
)

// TelegramInitData validates Mini App init data signed with the bot token and
// stores the caller in the context. Init data is read from the
// X-Telegram-Init-Data header, the legacy init_data header, or
// "Authorization: tma <data>". expIn of zero disables the age check.
func TelegramInitData(token string, expIn time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			SendError(c, log, errors.New(errors.ErrCodeInternal, "Init data validation is not configured"))
			return
		}

		raw := initDataFrom(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Telegram Init Data required"})
			return
		}

		if err := initdata.Validate(raw, token, expIn); err != nil {
			log.Debug().Err(err).Msg("Init data validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid init data"})
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil || parsed.User.ID == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid init data format"})
			return
		}

		SetCaller(c, parsed.User.ID, parsed.User.Username)
		c.Next()
	}
}

func initDataFrom(c *gin.Context) string {
	if v := c.GetHeader(InitDataHeader); v != "" {
		return v
	}
	if v := c.GetHeader("init_data"); v != "" {
		return v
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "tma ") {
		return strings.TrimPrefix(auth, "tma ")
	}
	return ""
}

// SetCaller stores the authenticated caller in the context.
func SetCaller(c *gin.Context, id int64, username string) {
	c.Set(userIDKey, id)
	c.Set(usernameKey, username)
}

// CallerID returns the Telegram user ID set by TelegramInitData.
func CallerID(c *gin.Context) (int64, bool) {
	id := getUserID(c)
	return id, id != 0
}

// CallerUsername returns the Telegram username set by TelegramInitData.
func CallerUsername(c *gin.Context) string {
	return c.GetString(usernameKey)
}
