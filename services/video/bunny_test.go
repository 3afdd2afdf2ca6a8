package videosvc

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/forma/core"
)

func TestToken(t *testing.T) {
	sum := sha256.Sum256([]byte("secret" + "vid-1" + "1700000000"))
	assert.Equal(t, hex.EncodeToString(sum[:]), Token("secret", "vid-1", 1700000000))
	assert.NotEqual(t, Token("secret", "vid-1", 1700000000), Token("secret", "vid-1", 1700000001))
	assert.Len(t, Token("", "", 0), 64)
}

func TestBunnySigner_EmbedURL(t *testing.T) {
	now := time.Date(2023, 11, 14, 22, 13, 20, 500, time.UTC) // 1700000000.0000005
	conf := &core.Config{Bunny: core.BunnyConfig{LibraryID: "12345", TokenKey: "secret", URLTTL: time.Hour}}

	s := NewBunnySigner(conf)
	s.nowFunc = func() time.Time { return now }

	url, exp := s.EmbedURL("vid-1")
	wantExp := int64(1700003600)
	assert.Equal(t, time.Unix(wantExp, 0).UTC(), exp)
	assert.Equal(
		t,
		"https://iframe.mediadelivery.net/embed/12345/vid-1?expires=1700003600&token="+Token("secret", "vid-1", wantExp),
		url,
	)

	t.Run("unsigned without token key", func(t *testing.T) {
		conf.Bunny.TokenKey = ""
		s := NewBunnySigner(conf)
		s.nowFunc = func() time.Time { return now }
		url, _ := s.EmbedURL("vid-1")
		assert.Equal(t, "https://iframe.mediadelivery.net/embed/12345/vid-1", url)
	})
}
