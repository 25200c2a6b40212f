package media_downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// A progressWriter discards data but counts it, so that it can be the last writer in an io.MultiWriter.
type progressWriter struct {
	downloaded int64
	expected   int64
	callback   func(downloaded int64, expected int64)
}

func (w *progressWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	w.downloaded += int64(n)
	if w.callback != nil {
		w.callback(w.downloaded, w.expected)
	}
	return n, nil
}

// SaveStream copies stream into a temporary file next to target, renaming it into place on success. The callback,
// if not nil, is called after every write with the running byte count and the expected size (0 if unknown).
func SaveStream(ctx context.Context, target string, stream io.Reader, expected int64, callback func(int64, int64)) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, fmt.Errorf("failed to create target dir: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(target), ".partial-*")
	if err != nil {
		return 0, fmt.Errorf("failed to open target file: %w", err)
	}
	tempPath := f.Name()
	defer os.Remove(tempPath)

	pw := &progressWriter{expected: expected, callback: callback}
	_, err = io.Copy(io.MultiWriter(f, pw), &readerContext{ctx: ctx, r: stream})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to save stream: %w", err)
	}
	if err := os.Rename(tempPath, target); err != nil {
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}
	return pw.downloaded, nil
}

// SaveHTTPRequest executes req with ctx and saves the response body like SaveStream.
func SaveHTTPRequest(ctx context.Context, client *http.Client, target string, req *http.Request, callback func(int64, int64)) (int64, error) {
	if req == nil {
		return 0, fmt.Errorf("nil request")
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("download failed: %s", resp.Status)
	}
	return SaveStream(ctx, target, resp.Body, max(resp.ContentLength, 0), callback)
}
