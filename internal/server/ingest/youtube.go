package ingest

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"
)

type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamURLContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (string, error)
}

// YouTubeResolver picks the highest-bitrate audio-only stream of a video.
// Those streams are mp4 or webm, so the pipeline transcodes them.
type YouTubeResolver struct {
	client videoClient
}

func NewYouTubeResolver(httpClient *http.Client) *YouTubeResolver {
	return &YouTubeResolver{client: &youtube.Client{HTTPClient: httpClient}}
}

var errNoAudio = errors.New("no audio-only stream available")

func (r *YouTubeResolver) Resolve(ctx context.Context, pageURL string) (*Source, error) {
	video, err := r.client.GetVideoContext(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var best *youtube.Format
	for i := range video.Formats {
		f := &video.Formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	if best == nil {
		return nil, errNoAudio
	}

	streamURL, err := r.client.GetStreamURLContext(ctx, video, best)
	if err != nil {
		return nil, err
	}

	return &Source{
		StreamURL:   streamURL,
		Title:       video.Title,
		ContentType: baseMediaType(best.MimeType),
	}, nil
}
