package adnetwork

import (
	"context"
	"fmt"
	"time"

	"github.com/mahimeta/mahimeta-go-sdk/internal/domain"
)

// Network is the ad network SDK the coordinator and slots delegate to.
type Network interface {
	// Initialize starts the network for appID. onComplete is called once the
	// network finished its own initialization, possibly from another goroutine.
	Initialize(ctx context.Context, appCtx domain.AppContext, appID string, onComplete func(InitializationStatus)) error
	// NewAdView builds an unloaded view of the given size.
	NewAdView(size domain.AdSize) AdView
	// NewAdRequest builds a default ad request.
	NewAdRequest() AdRequest
}

// AdView is a single ad placement rendered by the network.
type AdView interface {
	SetAdUnitID(id string)
	AdUnitID() string
	SetAdSize(size domain.AdSize)
	AdSize() domain.AdSize
	SetListener(l AdListener)
	// LoadAd requests an ad; the outcome is reported to the listener.
	LoadAd(req AdRequest)
	Resume()
	Pause()
	Destroy()
}

// AdListener receives ad lifecycle callbacks.
type AdListener interface {
	OnAdLoaded()
	OnAdFailedToLoad(err LoadAdError)
	OnAdOpened()
	OnAdClicked()
	OnAdClosed()
	OnAdImpression()
}

// BaseListener implements AdListener with no-ops, for embedding.
type BaseListener struct{}

func (BaseListener) OnAdLoaded()                 {}
func (BaseListener) OnAdFailedToLoad(LoadAdError) {}
func (BaseListener) OnAdOpened()                 {}
func (BaseListener) OnAdClicked()                {}
func (BaseListener) OnAdClosed()                 {}
func (BaseListener) OnAdImpression()             {}

// AdRequest carries per-request targeting.
type AdRequest struct {
	ID         string
	Keywords   []string
	ContentURL string
	CreatedAt  time.Time
}

// AdapterState is the readiness of a mediation adapter.
type AdapterState int

const (
	AdapterNotReady AdapterState = iota
	AdapterReady
)

// InitializationStatus is reported when the network finished initializing.
type InitializationStatus struct {
	AppID    string
	Adapters map[string]AdapterState
}

// Load error codes.
const (
	ErrCodeInternal       = 0
	ErrCodeInvalidRequest = 1
	ErrCodeNetwork        = 2
	ErrCodeNoFill         = 3
)

// LoadAdError describes why an ad failed to load.
type LoadAdError struct {
	Code    int
	Message string
	Domain  string
}

func (e LoadAdError) Error() string {
	return fmt.Sprintf("load ad failed (domain=%s code=%d): %s", e.Domain, e.Code, e.Message)
}
