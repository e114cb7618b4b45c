// Package netx holds plain HTTP download helpers.
package netx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrTooLarge is returned by Download when the body exceeds the cap.
var ErrTooLarge = errors.New("response body exceeds size limit")

// Download GETs url and reads the whole body into memory, returning the bytes
// and the response Content-Type. Anything other than a 2xx status, a read
// error or a body longer than maxBytes (when > 0) is an error; no partial
// data is returned in that case.
func Download(ctx context.Context, client *http.Client, url string, header http.Header, maxBytes int64) ([]byte, string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}

	var buf bytes.Buffer
	if resp.ContentLength > 0 && (maxBytes <= 0 || resp.ContentLength <= maxBytes) {
		buf.Grow(int(resp.ContentLength))
	}
	if _, err := buf.ReadFrom(body); err != nil {
		return nil, "", err
	}
	if maxBytes > 0 && int64(buf.Len()) > maxBytes {
		return nil, "", ErrTooLarge
	}

	return buf.Bytes(), resp.Header.Get("Content-Type"), nil
}
