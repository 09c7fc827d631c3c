package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"

	"boneai-backend/internal/imagedata"
)

const defaultMaxImageBytes = 15 << 20

var (
	errUnsupportedImage = errors.New("unsupported image format")
	errImageHost        = errors.New("image host not allowed")
)

// ImageLoader fetches the bytes behind a report image URL.
type ImageLoader interface {
	Load(ctx context.Context, url string) ([]byte, error)
}

// HTTPImageLoader loads inline data URIs and http(s) URLs whose host is in
// AllowedHosts. An empty AllowedHosts accepts data URIs only. Redirects are
// not followed.
type HTTPImageLoader struct {
	Client       *http.Client
	MaxBytes     int64
	AllowedHosts []string
}

func (l HTTPImageLoader) Load(ctx context.Context, rawURL string) ([]byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	lower := strings.ToLower(rawURL)
	switch {
	case strings.HasPrefix(lower, "data:"):
		img, err := imagedata.Normalize(rawURL)
		if err != nil {
			return nil, err
		}
		return img.Bytes, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
	default:
		return nil, fmt.Errorf("unsupported image url scheme")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if !l.hostAllowed(u) {
		return nil, fmt.Errorf("%w: %s", errImageHost, u.Host)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	client := http.Client{}
	if l.Client != nil {
		client = *l.Client
	}
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("image fetch status %d", resp.StatusCode)
	}

	max := l.MaxBytes
	if max <= 0 {
		max = defaultMaxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("image exceeds %d bytes", max)
	}
	return data, nil
}

func (l HTTPImageLoader) hostAllowed(u *url.URL) bool {
	if u.User != nil || u.Host == "" {
		return false
	}
	for _, allowed := range l.AllowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if strings.EqualFold(u.Host, allowed) || (!strings.Contains(allowed, ":") && strings.EqualFold(u.Hostname(), allowed)) {
			return true
		}
	}
	return false
}

// probeImage returns the pixel size and the fpdf image type.
func probeImage(data []byte) (int, int, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", err
	}
	switch format {
	case "jpeg":
		return cfg.Width, cfg.Height, "JPG", nil
	case "png":
		return cfg.Width, cfg.Height, "PNG", nil
	case "gif":
		return cfg.Width, cfg.Height, "GIF", nil
	default:
		return 0, 0, "", errUnsupportedImage
	}
}
