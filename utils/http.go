// utils/http.go
package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// maxDownloadBytes caps photo downloads (Telegram bots can fetch at most 20MB).
const maxDownloadBytes = 20 << 20

// Download fetches url, retrying transient failures with exponential backoff.
// 4xx responses are not retried.
func Download(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if client == nil {
		client = HTTPClient
	}

	var (
		body        []byte
		contentType string
	)
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("download returned status %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
		if err != nil {
			return err
		}
		if len(b) > maxDownloadBytes {
			return backoff.Permanent(fmt.Errorf("download exceeds %d bytes", maxDownloadBytes))
		}
		body = b
		contentType = resp.Header.Get("Content-Type")
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, 3), ctx)); err != nil {
		return nil, "", err
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(body)
	}
	return body, contentType, nil
}
