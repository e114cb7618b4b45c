// Package trackstest provides an in-memory stand-in for the S3 bucket used
// by tracks.Service.
package trackstest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type Object struct {
	Data         []byte
	ContentType  string
	LastModified time.Time
}

// Store keeps objects in a map keyed by object key. It implements both
// tracks.ObjectAPI and tracks.Presigner. Setting one of the *Err fields
// makes the matching call fail.
type Store struct {
	mu      sync.Mutex
	objects map[string]Object

	// PageSize caps keys per ListObjectsV2 page; 0 means 1000.
	PageSize int

	PutErr     error
	ListErr    error
	DeleteErr  error
	PresignErr error

	// PresignFailKey makes presigning fail only for that key.
	PresignFailKey string

	Puts    int
	Deletes int
	// LastPresignExpires is the expiry requested by the last presign call.
	LastPresignExpires time.Duration
}

func NewStore() *Store {
	return &Store{objects: make(map[string]Object)}
}

// Seed stores an object directly, bypassing PutErr.
func (s *Store) Seed(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Data: data, ContentType: "audio/mpeg", LastModified: time.Now().UTC()}
}

func (s *Store) Get(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	return o, ok
}

func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Puts++
	if s.PutErr != nil {
		return nil, s.PutErr
	}
	if in.ContentLength != nil && *in.ContentLength != int64(len(body)) {
		return nil, fmt.Errorf("content length %d does not match body %d", *in.ContentLength, len(body))
	}
	s.objects[aws.ToString(in.Key)] = Object{
		Data:         bytes.Clone(body),
		ContentType:  aws.ToString(in.ContentType),
		LastModified: time.Now().UTC(),
	}
	return &s3.PutObjectOutput{}, nil
}

func (s *Store) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}

	prefix := aws.ToString(in.Prefix)
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, errors.New("bad continuation token")
		}
		start = n
	}
	size := s.PageSize
	if size <= 0 {
		size = 1000
	}
	end := min(start+size, len(keys))

	out := &s3.ListObjectsV2Output{KeyCount: aws.Int32(int32(end - start))}
	for _, k := range keys[start:end] {
		o := s.objects[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(o.Data))),
			LastModified: aws.Time(o.LastModified),
		})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	} else {
		out.IsTruncated = aws.Bool(false)
	}
	return out, nil
}

func (s *Store) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deletes++
	if s.DeleteErr != nil {
		return nil, s.DeleteErr
	}
	delete(s.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (s *Store) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastPresignExpires = opts.Expires
	key := aws.ToString(in.Key)
	if s.PresignErr != nil {
		return nil, s.PresignErr
	}
	if s.PresignFailKey != "" && s.PresignFailKey == key {
		return nil, errors.New("presign refused")
	}

	u := url.URL{
		Scheme:   "https",
		Host:     "storage.test",
		Path:     "/" + aws.ToString(in.Bucket) + "/" + key,
		RawQuery: "X-Amz-Expires=" + strconv.Itoa(int(opts.Expires.Seconds())) + "&X-Amz-Signature=fake",
	}
	return &v4.PresignedHTTPRequest{URL: u.String(), Method: "GET"}, nil
}
