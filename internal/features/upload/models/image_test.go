package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewImageKey_NamespacedByUser(t *testing.T) {
	key := NewImageKey(555, time.Unix(0, 42))
	assert.True(t, strings.HasPrefix(key, "555/42-"))
	assert.False(t, strings.HasPrefix(key, "images/"), "IMAGE_DIR already names the root")
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}

func TestNewImageKey_SameInstantDiffers(t *testing.T) {
	at := time.Now()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		seen[NewImageKey(1, at)] = struct{}{}
	}
	assert.Len(t, seen, 100)
}
