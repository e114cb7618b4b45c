package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/trackvault/internal/common"
)

func TestValidateSourceURL(t *testing.T) {
	valid := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"http://youtube.com/watch?v=dQw4w9WgXcQ&t=42",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://music.youtube.com/watch?v=dQw4w9WgXcQ",
		"  https://youtu.be/abc_DEF-123  ",
	}
	for _, u := range valid {
		assert.NoError(t, ValidateSourceURL(u), u)
	}

	invalid := []string{
		"",
		"youtube.com/watch?v=abc",
		"ftp://youtube.com/watch?v=abc",
		"https://vimeo.com/123",
		"https://www.youtube.com/",
		"https://www.youtube.com/watch?v=",
		"https://evil.example/?u=https://youtu.be/abc",
		"https://youtube.com.evil.example/watch?v=abc",
	}
	for _, u := range invalid {
		err := ValidateSourceURL(u)
		require.ErrorIs(t, err, common.ErrInvalidSourceURL, u)
	}
}

func TestBaseMediaType(t *testing.T) {
	assert.Equal(t, "audio/mp4", baseMediaType(`audio/mp4; codecs="mp4a.40.2"`))
	assert.Equal(t, "audio/mpeg", baseMediaType("Audio/MPEG"))
	assert.Equal(t, "", baseMediaType(""))
	assert.Equal(t, "weird", baseMediaType("weird;;;"))
}
