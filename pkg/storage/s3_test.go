package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestS3(t *testing.T, public bool) *S3 {
	t.Helper()
	s, err := NewS3(context.Background(), S3Config{
		Region:               "eu-central-1",
		AccessKeyID:          "AKIDEXAMPLE",
		SecretAccessKey:      "secret",
		VideosBucket:         "ar-videos",
		PresignExpireMinutes: 5,
		PublicVideos:         public,
	}, nil)
	require.NoError(t, err)
	return s
}

func TestVideoKey(t *testing.T) {
	assert.Equal(t, "videos/item/vid.mp4", VideoKey("item", "vid", "clip.MP4"))
	assert.Equal(t, "videos/item/vid.mp4", VideoKey("item", "vid", "noext"))
	assert.Equal(t, "videos/item/vid.webm", VideoKey("item", "vid", "../../x.webm"))
}

func TestPlaybackURL_FileURLWithoutKey(t *testing.T) {
	s := newTestS3(t, false)
	url, err := s.PlaybackURL(context.Background(), "", "https://cdn.example.com/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.mp4", url)
}

func TestPlaybackURL_Public(t *testing.T) {
	s := newTestS3(t, true)
	url, err := s.PlaybackURL(context.Background(), "videos/i/v.mp4", "")
	require.NoError(t, err)
	assert.Equal(t, "https://ar-videos.s3.eu-central-1.amazonaws.com/videos/i/v.mp4", url)
}

func TestPlaybackURL_Presigned(t *testing.T) {
	s := newTestS3(t, false)
	url, err := s.PlaybackURL(context.Background(), "videos/i/v.mp4", "")
	require.NoError(t, err)
	assert.True(t, strings.Contains(url, "videos/i/v.mp4"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=300")
}

func TestPresignExpireDefault(t *testing.T) {
	s := &S3{}
	assert.Equal(t, 15*time.Minute, s.PresignExpire())
}
