package ingest

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/trackvault/internal/common"
)

var sourceURLPattern = regexp.MustCompile(`^https?://((www|m|music)\.)?(youtube\.com/watch\?v=|youtu\.be/)[A-Za-z0-9_-]+`)

// ValidateSourceURL accepts YouTube watch and short links only.
func ValidateSourceURL(raw string) error {
	if !sourceURLPattern.MatchString(strings.TrimSpace(raw)) {
		return fmt.Errorf("%w: %q", common.ErrInvalidSourceURL, raw)
	}
	return nil
}

// Source is what a Resolver found for a page URL: a directly fetchable
// media stream plus its title.
type Source struct {
	StreamURL   string
	Title       string
	ContentType string
	Header      http.Header
}

// Resolver turns a validated page URL into a Source.
type Resolver interface {
	Resolve(ctx context.Context, pageURL string) (*Source, error)
}

// baseMediaType drops parameters: `audio/mp4; codecs="mp4a.40.2"` -> audio/mp4.
func baseMediaType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt, _, _ = strings.Cut(ct, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
