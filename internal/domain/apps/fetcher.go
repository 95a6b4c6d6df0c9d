package apps

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/infrastructure/resilience"
	"github.com/MicroPythonOS/shell/internal/infrastructure/tracing"
	"github.com/MicroPythonOS/shell/internal/shared/utils"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// Store index paths. The catalog is served zstd-compressed with a
// plain JSON fallback for stores that don't compress.
const (
	indexPathZst   = "/index.json.zst"
	indexPathPlain = "/index.json"
)

// IndexEntry describes one package in the store catalog.
type IndexEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	URL         string `json:"url"`
	SHA256      string `json:"sha256"`
	Size        int64  `json:"size,omitempty"`
}

// Index is the store catalog.
type Index struct {
	Updated  time.Time    `json:"updated"`
	Packages []IndexEntry `json:"packages"`
}

// Find looks up a catalog entry by package ID.
func (idx *Index) Find(appID string) (IndexEntry, bool) {
	for _, entry := range idx.Packages {
		if entry.ID == appID {
			return entry, true
		}
	}
	return IndexEntry{}, false
}

// Store fetches the package catalog and downloads archives from an
// app store over HTTP. Requests retry transient failures through the
// underlying transport; a circuit breaker fails calls fast once the
// store looks dead instead of riding out the retry schedule each time.
type Store struct {
	client  *resty.Client
	logger  *logging.Logger
	hasher  *utils.Hasher
	breaker *resilience.Breaker
}

// NewStore creates a store client for the given base URL.
func NewStore(baseURL string, logger *logging.Logger) *Store {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 15 * time.Second
	retryClient.Logger = nil // Disable logging

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(60 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(15 * time.Second).
		SetHeader("User-Agent", "mpos-shell/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	log := logger.Named("store")
	breaker := resilience.New("store", resilience.Settings{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("store circuit changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Store{
		client:  client,
		logger:  log,
		hasher:  utils.DefaultHasher(),
		breaker: breaker,
	}
}

// traceHeaders propagates the caller's trace identity onto outbound
// store requests, so an install triggered over the debug API can be
// followed into the store fetch.
func traceHeaders(ctx context.Context) map[string]string {
	headers := make(map[string]string)
	tracing.InjectTraceContext(ctx, headers)
	return headers
}

// Index downloads and decodes the store catalog.
func (s *Store) Index(ctx context.Context) (*Index, error) {
	var idx Index
	err := s.breaker.Do(func() error {
		data, err := s.fetchIndex(ctx)
		if err != nil {
			return err
		}
		if err := sonic.Unmarshal(data, &idx); err != nil {
			return fmt.Errorf("invalid store index: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Store index fetched", zap.Int("packages", len(idx.Packages)))
	return &idx, nil
}

// fetchIndex retrieves the raw catalog JSON, preferring the
// compressed variant.
func (s *Store) fetchIndex(ctx context.Context) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).SetHeaders(traceHeaders(ctx)).Get(indexPathZst)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store index: %w", err)
	}

	switch {
	case resp.IsSuccess():
		dec, err := zstd.NewReader(bytes.NewReader(resp.Body()))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress store index: %w", err)
		}
		defer dec.Close()
		data, err := io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress store index: %w", err)
		}
		return data, nil

	case resp.StatusCode() == http.StatusNotFound:
		plain, err := s.client.R().SetContext(ctx).SetHeaders(traceHeaders(ctx)).Get(indexPathPlain)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch store index: %w", err)
		}
		if !plain.IsSuccess() {
			return nil, fmt.Errorf("store returned %s for index", plain.Status())
		}
		return plain.Body(), nil

	default:
		return nil, fmt.Errorf("store returned %s for index", resp.Status())
	}
}

// Download fetches an entry's archive into dir, verifying the
// catalog-declared checksum, and returns the archive path. The
// partial file is removed on any failure.
func (s *Store) Download(ctx context.Context, entry IndexEntry, dir string) (string, error) {
	if entry.URL == "" || entry.SHA256 == "" {
		return "", fmt.Errorf("store entry %s has no download info", entry.ID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to prepare download directory: %w", err)
	}
	out := filepath.Join(dir, entry.ID+"-"+entry.Version+PackageExt)

	err := s.breaker.Do(func() error {
		resp, err := s.client.R().
			SetContext(ctx).
			SetHeaders(traceHeaders(ctx)).
			SetOutput(out).
			Get(entry.URL)
		if err != nil {
			os.Remove(out)
			return fmt.Errorf("download failed: %w", err)
		}
		if !resp.IsSuccess() {
			os.Remove(out)
			return fmt.Errorf("store returned %s for %s", resp.Status(), entry.ID)
		}

		sum, err := s.hasher.HashFile(out)
		if err != nil {
			os.Remove(out)
			return fmt.Errorf("failed to checksum download: %w", err)
		}
		if !strings.EqualFold(sum, entry.SHA256) {
			os.Remove(out)
			return fmt.Errorf("%w: %s", ErrChecksumMismatch, entry.ID)
		}

		s.logger.Info("Package downloaded",
			zap.String("app_id", entry.ID),
			zap.String("version", entry.Version),
			zap.Duration("took", resp.Time()))
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
