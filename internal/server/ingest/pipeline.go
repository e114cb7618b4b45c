// Package ingest pulls audio from a video page URL into memory, ready to be
// stored as an mp3: validate, resolve, download, transcode if needed, name.
package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/trackvault/internal/common"
	"github.com/dmitrijs2005/trackvault/internal/logging"
	"github.com/dmitrijs2005/trackvault/internal/netx"
)

const maxStemLength = 50

// Buffer holds one ingested track. The caller owns it after Ingest returns
// and calls Release once the bytes have been stored.
type Buffer struct {
	Data        []byte
	FileName    string
	Title       string
	ContentType string
}

// Release drops the reference to the audio bytes.
func (b *Buffer) Release() {
	if b != nil {
		b.Data = nil
	}
}

type Options struct {
	// FetchTimeout bounds the stream download.
	FetchTimeout time.Duration
	// Timeout bounds the whole run, independent of the caller's context.
	Timeout       time.Duration
	MaxBytes      int64
	MaxConcurrent int64
	HTTPClient    *http.Client
}

type Pipeline struct {
	resolver   Resolver
	transcoder Transcoder
	opts       Options
	sem        *semaphore.Weighted
	log        logging.Logger
}

func NewPipeline(resolver Resolver, transcoder Transcoder, opts Options, log logging.Logger) *Pipeline {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 2 * time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 100 << 20
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &Pipeline{
		resolver:   resolver,
		transcoder: transcoder,
		opts:       opts,
		sem:        semaphore.NewWeighted(opts.MaxConcurrent),
		log:        log.With("component", "ingest"),
	}
}

// nowFunc is swapped in tests.
var nowFunc = time.Now

// Ingest runs the whole pipeline for sourceURL. Waiting for a free slot
// honours ctx; once started the run is detached from ctx cancellation and
// bounded by Options.Timeout instead.
func (p *Pipeline) Ingest(ctx context.Context, sourceURL string) (*Buffer, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if err := ValidateSourceURL(sourceURL); err != nil {
		return nil, err
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.Timeout)
	defer cancel()

	started := nowFunc()
	log := p.log.With("source", sourceURL)

	src, err := p.resolver.Resolve(runCtx, sourceURL)
	if err != nil {
		log.Warn(runCtx, "resolve failed", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrSourceResolution, err)
	}
	if src == nil || src.StreamURL == "" {
		return nil, fmt.Errorf("%w: no stream found", common.ErrSourceResolution)
	}

	data, contentType, err := p.fetch(runCtx, src)
	if err != nil {
		log.Warn(runCtx, "download failed", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrTransfer, err)
	}

	if contentType != common.AudioContentType {
		out, err := p.transcoder.Transcode(runCtx, data)
		if err != nil {
			log.Warn(runCtx, "transcode failed", "from", contentType, "error", err)
			return nil, fmt.Errorf("%w: %w", common.ErrTranscode, err)
		}
		data = out
	}

	title := strings.TrimSpace(src.Title)
	now := nowFunc()
	fileName := SafeFileName(title, now)
	if title == "" {
		title = placeholderName(now)
	}

	buf := &Buffer{
		Data:        data,
		FileName:    fileName,
		Title:       title,
		ContentType: common.AudioContentType,
	}

	log.Info(runCtx, "ingested", "file", buf.FileName, "bytes", len(data), "elapsed", time.Since(started).String())
	return buf, nil
}

func (p *Pipeline) fetch(ctx context.Context, src *Source) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()

	data, header, err := netx.Download(ctx, p.opts.HTTPClient, src.StreamURL, src.Header, p.opts.MaxBytes)
	if err != nil {
		return nil, "", err
	}

	ct := baseMediaType(src.ContentType)
	if ct == "" {
		ct = baseMediaType(header)
	}
	return data, ct, nil
}

func placeholderName(now time.Time) string {
	return "track_" + strconv.FormatInt(now.UnixMilli(), 10)
}

// SafeFileName keeps only ASCII letters and digits of title, cuts the
// result to 50 characters and adds ".mp3". A title with nothing usable gets
// a "track_<unix millis>" stem.
func SafeFileName(title string, now time.Time) string {
	var b strings.Builder
	for _, r := range title {
		if r < utf8.RuneSelf && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == maxStemLength {
				break
			}
		}
	}
	stem := b.String()
	if stem == "" {
		stem = placeholderName(now)
	}
	return stem + common.AudioExtension
}
