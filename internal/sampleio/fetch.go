package sampleio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

const fetchTimeout = 60 * time.Second

// CachedFile describes a downloaded sample in the cache directory.
type CachedFile struct {
	URL    string
	Path   string
	Cached bool
}

// Fetch downloads rawURL into cacheDir unless a copy is already there. The
// cache file name is derived from the URL so repeated fetches are free.
func Fetch(ctx context.Context, rawURL, cacheDir string) (CachedFile, error) {
	if cacheDir == "" {
		return CachedFile{}, fmt.Errorf("cache directory is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return CachedFile{}, fmt.Errorf("unsupported sample url %q", rawURL)
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return CachedFile{}, fmt.Errorf("failed to create cache dir: %w", err)
	}

	destPath := filepath.Join(cacheDir, cacheName(parsed))
	if _, err := os.Stat(destPath); err == nil {
		return CachedFile{URL: rawURL, Path: destPath, Cached: true}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return CachedFile{}, fmt.Errorf("failed to stat cached sample: %w", err)
	}

	tmpFile, err := os.CreateTemp(cacheDir, "sample-*.tmp")
	if err != nil {
		return CachedFile{}, fmt.Errorf("failed to create temp sample: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	resp, err := httpRequest(ctx, rawURL)
	if err != nil {
		return CachedFile{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return CachedFile{}, fmt.Errorf("unexpected sample status: %s", resp.Status)
	}

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return CachedFile{}, fmt.Errorf("failed to download sample: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return CachedFile{}, fmt.Errorf("failed to close temp sample: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return CachedFile{}, fmt.Errorf("failed to move sample into cache: %w", err)
	}
	return CachedFile{URL: rawURL, Path: destPath, Cached: false}, nil
}

// FetchSample downloads rawURL and loads it.
func FetchSample(ctx context.Context, rawURL, cacheDir string, opts Options) (Sample, CachedFile, error) {
	file, err := Fetch(ctx, rawURL, cacheDir)
	if err != nil {
		return Sample{}, CachedFile{}, err
	}
	sample, err := LoadFile(file.Path, opts)
	if err != nil {
		return Sample{}, file, err
	}
	sample.Source = rawURL
	return sample, file, nil
}

// cacheName keeps the URL's extension so LoadFile still recognizes .gz.
func cacheName(u *url.URL) string {
	sum := sha256.Sum256([]byte(u.String()))
	return hex.EncodeToString(sum[:8]) + path.Ext(u.Path)
}

func httpRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := &http.Client{Timeout: fetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
