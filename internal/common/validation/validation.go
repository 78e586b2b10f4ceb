package validation

import (
	"strconv"
	"strings"

	"chart-analyst-bot/internal/common/errors"
)

// MaxActivationDays bounds a single activation window (10 years).
const MaxActivationDays = 3650

// UserID parses a Telegram user ID given as a command argument.
func UserID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.NewValidationError("user_id", "user ID cannot be empty")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.NewValidationError("user_id", "user ID must be a number")
	}
	if id <= 0 {
		return 0, errors.NewValidationError("user_id", "user ID must be positive")
	}
	return id, nil
}

// Days parses an activation length in days.
func Days(raw string) (int, error) {
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.NewValidationError("days", "days must be a number")
	}
	return days, ValidateDays(days)
}

func ValidateDays(days int) error {
	if days <= 0 {
		return errors.NewValidationError("days", "days must be positive")
	}
	if days > MaxActivationDays {
		return errors.NewValidationError("days", "days cannot exceed "+strconv.Itoa(MaxActivationDays))
	}
	return nil
}
