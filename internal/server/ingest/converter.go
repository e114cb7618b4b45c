package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/trackvault/internal/common"
	"github.com/dmitrijs2005/trackvault/internal/netx"
)

const converterReplyLimit = 1 << 20

// ConverterResolver asks an external conversion service for a ready mp3.
// The service answers
//
//	{"status": true, "download": {"url": "...", "filename": "..."}}
//
// and the stream behind download.url is already audio/mpeg.
type ConverterResolver struct {
	endpoint string
	bitrate  int
	client   *http.Client
}

func NewConverterResolver(endpoint string, bitrate int, client *http.Client) *ConverterResolver {
	if bitrate <= 0 {
		bitrate = 128
	}
	return &ConverterResolver{endpoint: endpoint, bitrate: bitrate, client: client}
}

type converterReply struct {
	Status   bool   `json:"status"`
	Message  string `json:"message"`
	Download struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	} `json:"download"`
}

func (r *ConverterResolver) Resolve(ctx context.Context, pageURL string) (*Source, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return nil, fmt.Errorf("bad converter endpoint: %w", err)
	}
	q := u.Query()
	q.Set("url", pageURL)
	q.Set("bitrate", strconv.Itoa(r.bitrate))
	u.RawQuery = q.Encode()

	body, _, err := netx.Download(ctx, r.client, u.String(), nil, converterReplyLimit)
	if err != nil {
		return nil, err
	}

	var reply converterReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("decode converter reply: %w", err)
	}
	if !reply.Status || reply.Download.URL == "" {
		msg := reply.Message
		if msg == "" {
			msg = "converter returned no download"
		}
		return nil, errors.New(msg)
	}

	return &Source{
		StreamURL:   reply.Download.URL,
		Title:       strings.TrimSuffix(reply.Download.Filename, common.AudioExtension),
		ContentType: common.AudioContentType,
	}, nil
}
