// Package jellyfin is a minimal Jellyfin REST client covering the
// endpoints the playback coordinator needs: item lookup, stream and
// image URLs, subtitle streams and playback session reporting.
package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"jellycast.app/jellycast/internal/playback"
)

const (
	apiHTTPClientTimeout         = 20 * time.Second
	apiHTTPDialTimeout           = 5 * time.Second
	apiHTTPKeepAlive             = 30 * time.Second
	apiHTTPTLSHandshakeTimeout   = 5 * time.Second
	apiHTTPResponseHeaderTimeout = 10 * time.Second
	apiHTTPExpectContinueTimeout = 1 * time.Second
	apiHTTPIdleConnTimeout       = 90 * time.Second

	apiRetryMax = 3
)

var apiHTTPTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   apiHTTPDialTimeout,
		KeepAlive: apiHTTPKeepAlive,
	}).DialContext,
	TLSHandshakeTimeout:   apiHTTPTLSHandshakeTimeout,
	ResponseHeaderTimeout: apiHTTPResponseHeaderTimeout,
	ExpectContinueTimeout: apiHTTPExpectContinueTimeout,
	IdleConnTimeout:       apiHTTPIdleConnTimeout,
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   apiHTTPClientTimeout,
		Transport: apiHTTPTransport,
	}
}

func newRetryableHTTPClient(retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.Logger = nil
	retryClient.HTTPClient = newHTTPClient()

	return retryClient.StandardClient()
}

// Client talks to a single Jellyfin server on behalf of one user.
type Client struct {
	BaseURL string
	APIKey  string
	UserID  string

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once

	httpClient *http.Client
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (c *Client) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Logger()
		})
	}
	return &c.Logger
}

// NewClient builds a client for the server at baseURL. A trailing
// slash on baseURL is tolerated.
func NewClient(baseURL, apiKey, userID string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		UserID:     userID,
		httpClient: newRetryableHTTPClient(apiRetryMax),
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body for %s: %w", path, err)
		}
		reqBody = strings.NewReader(string(raw))
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("X-Emby-Token", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request for %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	return nil
}

// itemResponse is the subset of a Jellyfin item the client consumes.
type itemResponse struct {
	ID           string `json:"Id"`
	Name         string `json:"Name"`
	Container    string `json:"Container"`
	RunTimeTicks int64  `json:"RunTimeTicks"`
	UserData     struct {
		PlaybackPositionTicks int64 `json:"PlaybackPositionTicks"`
		Played                bool  `json:"Played"`
	} `json:"UserData"`
	MediaSources []struct {
		ID        string `json:"Id"`
		Container string `json:"Container"`
	} `json:"MediaSources"`
	MediaStreams []struct {
		Index        int    `json:"Index"`
		Type         string `json:"Type"`
		Language     string `json:"Language"`
		DisplayTitle string `json:"DisplayTitle"`
		Codec        string `json:"Codec"`
		IsDefault    bool   `json:"IsDefault"`
		IsForced     bool   `json:"IsForced"`
		IsExternal   bool   `json:"IsExternal"`
	} `json:"MediaStreams"`
}

// castableContainers can be served to a Cast device as-is; anything
// else goes through the server's HLS transcode.
var castableContainers = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
}

// Item fetches a library item and maps it to the coordinator's shape.
func (c *Client) Item(ctx context.Context, itemID string) (playback.MediaItem, error) {
	var resp itemResponse
	path := fmt.Sprintf("/Users/%s/Items/%s", c.UserID, itemID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return playback.MediaItem{}, err
	}

	item := playback.MediaItem{
		ID:            resp.ID,
		Name:          resp.Name,
		PositionTicks: resp.UserData.PlaybackPositionTicks,
		RuntimeTicks:  resp.RunTimeTicks,
	}

	container := resp.Container
	if len(resp.MediaSources) > 0 {
		item.MediaSourceID = resp.MediaSources[0].ID
		if resp.MediaSources[0].Container != "" {
			container = resp.MediaSources[0].Container
		}
	}

	if contentType, ok := castableContainers[container]; ok {
		item.ContentType = contentType
	} else {
		item.ContentType = "application/x-mpegURL"
	}
	return item, nil
}

// StreamURL returns the playable URL for the item: the original file
// when its container is directly castable, otherwise the server's HLS
// transcode. The device fetches this without headers, so the api key
// travels in the query.
func (c *Client) StreamURL(item playback.MediaItem) (string, error) {
	if item.ID == "" {
		return "", fmt.Errorf("item has no id")
	}

	query := url.Values{}
	query.Set("api_key", c.APIKey)
	if item.MediaSourceID != "" {
		query.Set("MediaSourceId", item.MediaSourceID)
	}

	if item.ContentType == "application/x-mpegURL" {
		query.Set("VideoCodec", "h264")
		query.Set("AudioCodec", "aac")
		return fmt.Sprintf("%s/Videos/%s/main.m3u8?%s", c.BaseURL, item.ID, query.Encode()), nil
	}

	query.Set("static", "true")
	return fmt.Sprintf("%s/Videos/%s/stream?%s", c.BaseURL, item.ID, query.Encode()), nil
}

// ImageURL returns the item's primary image URL.
func (c *Client) ImageURL(itemID string) string {
	return fmt.Sprintf("%s/Items/%s/Images/Primary", c.BaseURL, itemID)
}

// SubtitleURL returns the URL of an external subtitle stream converted
// to WebVTT, fetchable by the device without headers.
func (c *Client) SubtitleURL(item playback.MediaItem, streamIndex int) string {
	return fmt.Sprintf("%s/Videos/%s/%s/Subtitles/%d/Stream.vtt?api_key=%s",
		c.BaseURL, item.ID, item.MediaSourceID, streamIndex, url.QueryEscape(c.APIKey))
}

// SubtitleStreams returns the item's subtitle streams.
func (c *Client) SubtitleStreams(ctx context.Context, item playback.MediaItem) ([]playback.SubtitleStream, error) {
	var resp itemResponse
	path := fmt.Sprintf("/Users/%s/Items/%s", c.UserID, item.ID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	var streams []playback.SubtitleStream
	for _, ms := range resp.MediaStreams {
		if ms.Type != "Subtitle" {
			continue
		}
		streams = append(streams, playback.SubtitleStream{
			Index:        ms.Index,
			Language:     ms.Language,
			DisplayTitle: ms.DisplayTitle,
			Codec:        ms.Codec,
			IsDefault:    ms.IsDefault,
			IsForced:     ms.IsForced,
			IsExternal:   ms.IsExternal,
		})
	}
	return streams, nil
}

// SystemInfo is the public server identity.
type SystemInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
	ID         string `json:"Id"`
}

// Info fetches the public system info, usable as a connectivity check.
func (c *Client) Info(ctx context.Context) (SystemInfo, error) {
	var info SystemInfo
	err := c.do(ctx, http.MethodGet, "/System/Info/Public", nil, nil, &info)
	return info, err
}

// MarkPlayed flags the item as watched for the client's user.
func (c *Client) MarkPlayed(ctx context.Context, itemID string) error {
	path := fmt.Sprintf("/Users/%s/PlayedItems/%s", c.UserID, itemID)
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}

// MarkUnplayed clears the item's watched flag for the client's user.
func (c *Client) MarkUnplayed(ctx context.Context, itemID string) error {
	path := fmt.Sprintf("/Users/%s/PlayedItems/%s", c.UserID, itemID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
