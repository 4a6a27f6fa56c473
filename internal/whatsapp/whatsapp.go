// Package whatsapp talks to the WhatsApp Business Cloud API.
package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiURL     = "https://graph.facebook.com"
	apiVersion = "v22.0"
	userAgent  = "spigell/recrutabot"

	defaultMessagesPerSecond = 20
	defaultMaxMediaBytes     = 10 << 20
)

type Config struct {
	APIURL            string  `mapstructure:"api-url"`
	APIVersion        string  `mapstructure:"api-version"`
	PhoneNumberID     string  `mapstructure:"phone-number-id"`
	MessagesPerSecond float64 `mapstructure:"messages-per-second"`
	MaxMediaBytes     int64   `mapstructure:"max-media-bytes"`
}

type Client struct {
	token         string
	phoneNumberID string
	logger        *zap.Logger
	limiter       *rate.Limiter
	maxMediaBytes int64

	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	APIVersion string
}

func New(cfg Config, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	perSecond := cfg.MessagesPerSecond
	if perSecond <= 0 {
		perSecond = defaultMessagesPerSecond
	}

	maxMedia := cfg.MaxMediaBytes
	if maxMedia <= 0 {
		maxMedia = defaultMaxMediaBytes
	}

	c := &Client{
		token:         token,
		phoneNumberID: strings.TrimSpace(cfg.PhoneNumberID),
		logger:        logger,
		limiter:       rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
		maxMediaBytes: maxMedia,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent:  userAgent,
		APIURL:     apiURL,
		APIVersion: apiVersion,
	}

	if u := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"); u != "" {
		c.APIURL = u
	}
	if v := strings.TrimSpace(cfg.APIVersion); v != "" {
		c.APIVersion = v
	}

	return c
}

func (c *Client) endpoint(parts ...string) string {
	return fmt.Sprintf("%s/%s/%s", c.APIURL, c.APIVersion, strings.Join(parts, "/"))
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("User-Agent", c.UserAgent)

	return req
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("path", req.URL.Path))
	return c.HTTPClient.Do(req)
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
