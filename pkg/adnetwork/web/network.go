// Package web is an ad network that serves HTML creatives over plain HTTP.
// It lets hosts run the SDK end to end without a mobile ad SDK.
package web

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mahimeta/mahimeta-go-sdk/internal/domain"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/adnetwork"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/httpclient"
)

const (
	// Domain tags LoadAdErrors raised by this network.
	Domain = "com.mahimeta.web"

	adapterName    = "web"
	defaultTimeout = 15 * time.Second
)

// Logger defines the logging surface the network relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

// Options configures a Network.
type Options struct {
	CreativeBaseURL string
	Client          httpclient.Client
	Logger          Logger
}

// Network implements adnetwork.Network.
type Network struct {
	baseURL string
	client  httpclient.Client
	log     Logger

	mu    sync.RWMutex
	appID string
}

// New builds a web network. A nil client falls back to a resty client.
func New(opts Options) *Network {
	client := opts.Client
	if client == nil {
		client = httpclient.NewRestyClient(defaultTimeout)
	}
	log := opts.Logger
	if log == nil {
		log = noopLogger{}
	}
	return &Network{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.CreativeBaseURL), "/"),
		client:  client,
		log:     log,
	}
}

// Initialize records appID and reports completion asynchronously.
func (n *Network) Initialize(ctx context.Context, appCtx domain.AppContext, appID string, onComplete func(adnetwork.InitializationStatus)) error {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return errors.New("web network: app id is empty")
	}
	if n.baseURL == "" {
		return errors.New("web network: creative base url is empty")
	}

	n.mu.Lock()
	n.appID = appID
	n.mu.Unlock()

	n.log.InfoObj("web network initialized", "network_init", map[string]any{
		"app_id":  appID,
		"package": appCtx.PackageName,
	})

	go func() {
		if ctx.Err() != nil {
			return
		}
		if onComplete != nil {
			onComplete(adnetwork.InitializationStatus{
				AppID:    appID,
				Adapters: map[string]adnetwork.AdapterState{adapterName: adnetwork.AdapterReady},
			})
		}
	}()
	return nil
}

// AppID returns the app ID the network was initialized with.
func (n *Network) AppID() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.appID
}

// NewAdRequest builds a request with a fresh ID.
func (n *Network) NewAdRequest() adnetwork.AdRequest {
	return adnetwork.AdRequest{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
}

// NewAdView builds an unloaded view.
func (n *Network) NewAdView(size domain.AdSize) adnetwork.AdView {
	ctx, cancel := context.WithCancel(context.Background())
	return &View{
		network: n,
		size:    size,
		ctx:     ctx,
		cancel:  cancel,
	}
}
