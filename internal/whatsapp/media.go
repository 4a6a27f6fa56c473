package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type mediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// Media is a downloaded attachment.
type Media struct {
	Data     []byte
	MimeType string
}

// DownloadMedia resolves the media id to a temporary URL and downloads it.
// Both requests carry the access token.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) (*Media, error) {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return nil, errors.New("media id is required")
	}

	var info mediaInfo
	if err := c.getJSON(ctx, c.endpoint(mediaID), &info); err != nil {
		return nil, fmt.Errorf("resolve media url: %w", err)
	}
	if info.URL == "" {
		return nil, errors.New("resolve media url: empty url")
	}
	if info.FileSize > c.maxMediaBytes {
		return nil, fmt.Errorf("media is too large: %d bytes", info.FileSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return nil, err
	}
	req = c.setHeaders(req)

	resp, err := c.request(req)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download media: bad status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxMediaBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	if int64(len(data)) > c.maxMediaBytes {
		return nil, fmt.Errorf("media exceeds %d bytes", c.maxMediaBytes)
	}

	mimeType := info.MimeType
	if mimeType == "" {
		mimeType = resp.Header.Get("Content-Type")
	}

	return &Media{Data: data, MimeType: mimeType}, nil
}

func (c *Client) getJSON(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req = c.setHeaders(req)

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp.StatusCode, data)
	}

	return json.Unmarshal(data, target)
}
