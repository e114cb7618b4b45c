// Package tracks stores audio files in a per-user namespace of an S3 bucket.
// Every key is "{username}/{name}"; the prefix always comes from the
// authenticated username, never from client input.
package tracks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/trackvault/internal/common"
)

const (
	defaultSignedURLTTL = time.Hour
	defaultSignWorkers  = 8
)

// Track is one stored object as returned by List.
type Track struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size"`
}

type Options struct {
	Bucket       string
	SignedURLTTL time.Duration
	SignWorkers  int
}

type Service struct {
	api       ObjectAPI
	presigner Presigner
	bucket    string
	urlTTL    time.Duration
	workers   int
	clock     *keyClock
}

func NewService(api ObjectAPI, presigner Presigner, opts Options) *Service {
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = defaultSignedURLTTL
	}
	if opts.SignWorkers <= 0 {
		opts.SignWorkers = defaultSignWorkers
	}
	return &Service{
		api:       api,
		presigner: presigner,
		bucket:    opts.Bucket,
		urlTTL:    opts.SignedURLTTL,
		workers:   opts.SignWorkers,
		clock:     &keyClock{},
	}
}

// nowMillis is swapped in tests.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// keyClock hands out strictly increasing millisecond stamps so two uploads
// in one process never collide on a key.
type keyClock struct {
	last atomic.Int64
}

func (c *keyClock) next() int64 {
	for {
		prev := c.last.Load()
		now := nowMillis()
		if now <= prev {
			now = prev + 1
		}
		if c.last.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// SanitizeName replaces every whitespace character with '_'.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name)
}

func prefix(username string) string {
	return username + "/"
}

// Upload stores body under a fresh key and returns that key. The write is a
// single PutObject with retries off, so a failure never leaves a partial
// object behind.
func (s *Service) Upload(ctx context.Context, username, fileName string, body []byte, contentType string) (string, error) {
	if !common.IsPathSegment(username) {
		return "", common.ErrNotAuthorized
	}
	if strings.TrimSpace(fileName) == "" {
		return "", fmt.Errorf("%w: empty file name", common.ErrValidation)
	}
	if contentType == "" {
		contentType = common.AudioContentType
	}

	key := prefix(username) + strconv.FormatInt(s.clock.next(), 10) + "-" + SanitizeName(fileName)

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	}, func(o *s3.Options) {
		o.Retryer = aws.NopRetryer{}
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %w", common.ErrStorageWrite, key, err)
	}

	return key, nil
}

// List returns every object under the user's prefix with a signed GET URL.
// If any URL cannot be signed the whole call fails.
func (s *Service) List(ctx context.Context, username string) ([]Track, error) {
	if !common.IsPathSegment(username) {
		return nil, common.ErrNotAuthorized
	}
	p := prefix(username)

	tracks := make([]Track, 0)
	pager := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(p),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", common.ErrStorageRead, p, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasPrefix(key, p) || key == p {
				continue
			}
			tracks = append(tracks, Track{
				Key:          key,
				Name:         strings.TrimPrefix(key, p),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range tracks {
		i := i
		g.Go(func() error {
			req, err := s.presigner.PresignGetObject(gctx, &s3.GetObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(tracks[i].Key),
			}, s3.WithPresignExpires(s.urlTTL))
			if err != nil {
				return fmt.Errorf("sign %s: %w", tracks[i].Key, err)
			}
			tracks[i].URL = req.URL
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageRead, err)
	}

	return tracks, nil
}

// Delete removes "{username}/{fileName}". Deleting a missing object is not
// an error.
func (s *Service) Delete(ctx context.Context, username, fileName string) error {
	if !common.IsPathSegment(username) {
		return common.ErrNotAuthorized
	}
	if !common.IsPathSegment(fileName) {
		return fmt.Errorf("%w: invalid file name %q", common.ErrValidation, fileName)
	}

	key := prefix(username) + fileName
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("%w: delete %s: %w", common.ErrStorageWrite, key, err)
	}
	return nil
}
