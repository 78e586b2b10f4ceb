package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chart-analyst-bot/internal/common/errors"
)

func TestUserID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "555", want: 555},
		{in: " 1001 ", want: 1001},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := UserID(tt.in)
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDays(t *testing.T) {
	days, err := Days("7")
	assert.NoError(t, err)
	assert.Equal(t, 7, days)

	for _, in := range []string{"0", "-1", "x", "3651"} {
		_, err := Days(in)
		assert.True(t, errors.HasCode(err, errors.ErrCodeValidation), in)
	}
}
