package adconfig

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mahimeta/mahimeta-go-sdk/internal/domain"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/httpclient"
)

const (
	// DefaultBaseURL is the production ad config API.
	DefaultBaseURL = "https://mahimeta.com/api"
	// DefaultTimeout bounds connect and read of a single fetch.
	DefaultTimeout = 30 * time.Second

	servePath        = "ad_serve.php"
	publisherIDParam = "publisher_id"
	maxSnippetLen    = 512
)

// ConfigFetcher resolves the ad configuration for a publisher.
type ConfigFetcher interface {
	Fetch(ctx context.Context, publisherID string) (domain.AdConfig, error)
}

// Fetcher fetches ad configs from the remote ad_serve endpoint. It keeps no
// state besides the transport, so every Fetch is a fresh round trip.
type Fetcher struct {
	endpoint string
	client   httpclient.Client
}

// NewFetcher builds a fetcher for baseURL (DefaultBaseURL when empty) using
// client, or a resty client with DefaultTimeout when client is nil.
func NewFetcher(baseURL string, client httpclient.Client) *Fetcher {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = httpclient.NewRestyClient(DefaultTimeout)
	}
	return &Fetcher{
		endpoint: strings.TrimRight(baseURL, "/") + "/" + servePath,
		client:   client,
	}
}

// Endpoint returns the full URL queried by Fetch.
func (f *Fetcher) Endpoint() string { return f.endpoint }

// adConfigResponse is the wire shape returned by ad_serve.php.
type adConfigResponse struct {
	Success bool         `json:"success"`
	Data    adConfigData `json:"data"`
}

type adConfigData struct {
	ID    string `json:"id"`
	PubID string `json:"pub_id"`
	AdID  string `json:"ad_id"`
}

// Fetch retrieves the ad config for publisherID. The ID is sent as-is; the
// server decides what an empty value means.
func (f *Fetcher) Fetch(ctx context.Context, publisherID string) (domain.AdConfig, error) {
	query := map[string]string{publisherIDParam: publisherID}
	headers := map[string]string{"Content-Type": "application/json"}

	resp, err := f.client.Get(ctx, f.endpoint, query, headers)
	if err != nil {
		kind := KindTransport
		if isTimeout(err) {
			kind = KindTimeout
		}
		return domain.AdConfig{}, &FetchError{Kind: kind, PublisherID: publisherID, Err: err}
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return domain.AdConfig{}, &FetchError{
			Kind:        KindStatus,
			PublisherID: publisherID,
			StatusCode:  resp.StatusCode(),
			Body:        responseSnippet(body),
		}
	}

	var payload adConfigResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.AdConfig{}, &FetchError{Kind: KindDecode, PublisherID: publisherID, StatusCode: http.StatusOK, Err: err}
	}
	if !payload.Success {
		return domain.AdConfig{}, &FetchError{Kind: KindRejected, PublisherID: publisherID, StatusCode: http.StatusOK}
	}

	return domain.AdConfig{
		ID:             payload.Data.ID,
		PublisherAppID: payload.Data.PubID,
		AdUnitID:       payload.Data.AdID,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func responseSnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippetLen {
		return s[:maxSnippetLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
