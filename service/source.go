package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"imageresizer/bridge"
	"imageresizer/shared/log"
)

// Loader turns the data field of a request into raw image bytes.
type Loader struct {
	client   *http.Client
	roots    []string
	maxBytes int64
	logger   *zap.Logger
}

// NewLoader caps downloads at maxBytes. File sources are read only from
// inside one of roots; with no roots they are refused.
func NewLoader(client *http.Client, maxBytes int64, logger *zap.Logger, roots ...string) *Loader {
	l := &Loader{client: client, maxBytes: maxBytes, logger: logger}
	for _, root := range roots {
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			logger.Warn("Ignoring file root", zap.String("root", root), zap.Error(err))
			continue
		}
		l.roots = append(l.roots, abs)
	}

	return l
}

func (l *Loader) Load(ctx context.Context, dataType bridge.ImageDataType, data string) ([]byte, error) {
	switch dataType {
	case bridge.ImageDataBase64:
		return decodeBase64(data)
	case bridge.ImageDataURL:
		return l.loadURL(ctx, data)
	}

	return nil, fmt.Errorf("%w: image data type %s", ErrUnsupportedSource, dataType)
}

// decodeBase64 accepts plain base64 or a data URI, ignoring whitespace and
// missing padding.
func decodeBase64(data string) ([]byte, error) {
	if strings.HasPrefix(data, "data:") {
		if i := strings.Index(data, ","); i >= 0 {
			data = data[i+1:]
		}
	}
	data = strings.Join(strings.Fields(data), "")

	if b, err := base64.StdEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return nil, fmt.Errorf("bad base-64: %w", err)
	}

	return b, nil
}

func (l *Loader) loadURL(ctx context.Context, raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}

	switch u.Scheme {
	case "file":
		return l.readFile(u.Path)
	case "":
		return l.readFile(raw)
	case "http", "https":
		return l.download(ctx, raw)
	}

	return nil, fmt.Errorf("%w: scheme %s", ErrUnsupportedSource, u.Scheme)
}

func (l *Loader) readFile(p string) ([]byte, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}
	if !l.allowed(abs) {
		return nil, fmt.Errorf("%w: file access is not allowed for this path", ErrUnsupportedSource)
	}

	b, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("the image file could not be opened: %w", err)
	}

	return b, nil
}

func (l *Loader) allowed(abs string) bool {
	for _, root := range l.roots {
		rel, err := filepath.Rel(root, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (l *Loader) download(ctx context.Context, raw string) ([]byte, error) {
	logger := log.LoggerWithTrace(ctx, l.logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	res, err := l.client.Do(req)
	if err != nil {
		logger.Error("Error downloading image", zap.String("url", raw), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		logger.Error("Unexpected status downloading image", zap.String("url", raw), zap.Int("status", res.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrDownloadFailed, res.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(res.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if int64(len(b)) > l.maxBytes {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrDownloadFailed, l.maxBytes)
	}

	return b, nil
}
