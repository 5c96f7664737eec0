// Package sdk wires the ad config fetch to the ad network and exposes
// self-loading ad slots.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mahimeta/mahimeta-go-sdk/internal/domain"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/adconfig"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/adnetwork"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/manifest"
)

// State is the coordinator's initialization state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateInitialized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// Subscription identifies a registered listener. The zero value is never
// handed out for a stored listener, so removing it is a no-op.
type Subscription uint64

// Options configures a Coordinator.
type Options struct {
	Fetcher  adconfig.ConfigFetcher
	Manifest manifest.Reader
	Network  adnetwork.Network
	Logger   Logger
	Metrics  Metrics
}

type initListener struct {
	sub Subscription
	fn  func()
}

type failureListener struct {
	sub Subscription
	fn  func(error)
}

// attempt tracks one Initialize call until it settles.
type attempt struct {
	done chan struct{}
	err  error
}

func (a *attempt) settle(err error) {
	a.err = err
	close(a.done)
}

// Coordinator owns SDK initialization: it fetches the ad config, initializes
// the ad network with it and notifies listeners once both succeeded.
type Coordinator struct {
	fetcher  adconfig.ConfigFetcher
	manifest manifest.Reader
	network  adnetwork.Network
	log      Logger
	metrics  Metrics

	mu        sync.Mutex
	state     State
	config    *domain.AdConfig
	lastErr   error
	gen       uint64
	cancel    context.CancelFunc
	current   *attempt
	nextSub   Subscription
	listeners []initListener
	failures  []failureListener
}

// NewCoordinator validates opts and returns an uninitialized coordinator.
func NewCoordinator(opts Options) (*Coordinator, error) {
	switch {
	case opts.Fetcher == nil:
		return nil, errors.New("sdk: fetcher is required")
	case opts.Manifest == nil:
		return nil, errors.New("sdk: manifest reader is required")
	case opts.Network == nil:
		return nil, errors.New("sdk: ad network is required")
	}

	c := &Coordinator{
		fetcher:  opts.Fetcher,
		manifest: opts.Manifest,
		network:  opts.Network,
		log:      ensureLogger(opts.Logger),
		metrics:  ensureMetrics(opts.Metrics),
	}
	c.metrics.SetInitializationState(int(StateUninitialized))
	return c, nil
}

// Initialize starts the fetch and network initialization in the background.
// Synchronous errors are ErrAlreadyInitialized, ErrInvalidContext and
// manifest.ErrConfigurationMissing; later failures go to failure listeners.
func (c *Coordinator) Initialize(appCtx domain.AppContext) error {
	c.mu.Lock()
	if st := c.state; st != StateUninitialized {
		c.mu.Unlock()
		c.log.WarnObj("sdk initialize rejected", "sdk_init", map[string]any{"state": st.String()})
		return ErrAlreadyInitialized
	}
	if !appCtx.IsApplication() {
		c.mu.Unlock()
		return fmt.Errorf("%w: got %s context", ErrInvalidContext, appCtx.Scope)
	}
	publisherID, err := c.manifest.PublisherID(appCtx)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("read publisher id: %w", err)
	}

	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = StateInitializing
	c.lastErr = nil
	c.current = &attempt{done: make(chan struct{})}
	c.mu.Unlock()

	c.metrics.SetInitializationState(int(StateInitializing))
	c.log.InfoObj("sdk initializing", "sdk_init", map[string]any{
		"package":      appCtx.PackageName,
		"publisher_id": publisherID,
	})

	go c.run(ctx, gen, appCtx, publisherID)
	return nil
}

// run fetches the config and then initializes the network. Every state write
// is guarded by gen so a Cleanup in between discards late results.
func (c *Coordinator) run(ctx context.Context, gen uint64, appCtx domain.AppContext, publisherID string) {
	cfg, err := timedFetch(ctx, c.fetcher, c.metrics, callerCoordinator, publisherID)
	if err != nil {
		c.fail(gen, fmt.Errorf("fetch ad config: %w", err))
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.config = &cfg
	c.mu.Unlock()

	c.log.DebugObj("ad config fetched", "ad_config", cfg)

	err = c.network.Initialize(ctx, appCtx, cfg.PublisherAppID, func(status adnetwork.InitializationStatus) {
		c.complete(gen, status)
	})
	if err != nil {
		c.fail(gen, fmt.Errorf("initialize ad network: %w", err))
	}
}

func (c *Coordinator) complete(gen uint64, status adnetwork.InitializationStatus) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateInitializing {
		c.mu.Unlock()
		return
	}
	c.state = StateInitialized
	listeners := c.listeners
	c.listeners = nil
	if c.current != nil {
		c.current.settle(nil)
		c.current = nil
	}
	c.mu.Unlock()

	c.metrics.SetInitializationState(int(StateInitialized))
	c.log.InfoObj("sdk initialized", "sdk_init", map[string]any{
		"app_id":    status.AppID,
		"adapters":  len(status.Adapters),
		"listeners": len(listeners),
	})

	for _, l := range listeners {
		l.fn()
	}
}

func (c *Coordinator) fail(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateInitializing {
		c.mu.Unlock()
		return
	}
	c.state = StateUninitialized
	c.config = nil
	c.lastErr = err
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.current != nil {
		c.current.settle(err)
		c.current = nil
	}
	failures := append([]failureListener(nil), c.failures...)
	c.mu.Unlock()

	c.metrics.SetInitializationState(int(StateUninitialized))
	c.log.ErrorObj("sdk initialization failed", "sdk_init", map[string]any{"error": err.Error()})

	for _, l := range failures {
		l.fn(err)
	}
}

// IsInitialized reports whether the ad network is ready.
func (c *Coordinator) IsInitialized() bool {
	return c.State() == StateInitialized
}

// State returns the current initialization state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Config returns the fetched ad config, if any.
func (c *Coordinator) Config() (domain.AdConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config == nil {
		return domain.AdConfig{}, false
	}
	return *c.config, true
}

// LastError returns the error of the most recent failed attempt. It is reset
// by a new Initialize and by Cleanup.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// AddInitializationListener registers fn to run once initialization completes.
// If the coordinator is already initialized fn runs immediately on the calling
// goroutine and the zero Subscription is returned.
func (c *Coordinator) AddInitializationListener(fn func()) Subscription {
	if fn == nil {
		return 0
	}
	c.mu.Lock()
	if c.state == StateInitialized {
		c.mu.Unlock()
		fn()
		return 0
	}
	c.nextSub++
	sub := c.nextSub
	c.listeners = append(c.listeners, initListener{sub: sub, fn: fn})
	c.mu.Unlock()
	return sub
}

// RemoveInitializationListener drops a pending listener. Unknown or already
// removed subscriptions are ignored.
func (c *Coordinator) RemoveInitializationListener(sub Subscription) {
	if sub == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, l := range c.listeners {
		if l.sub == sub {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// AddFailureListener registers fn to receive errors from the background
// initialization. It stays registered across attempts.
func (c *Coordinator) AddFailureListener(fn func(error)) Subscription {
	if fn == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	sub := c.nextSub
	c.failures = append(c.failures, failureListener{sub: sub, fn: fn})
	return sub
}

// RemoveFailureListener drops a failure listener. Unknown subscriptions are ignored.
func (c *Coordinator) RemoveFailureListener(sub Subscription) {
	if sub == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, l := range c.failures {
		if l.sub == sub {
			c.failures = append(c.failures[:i], c.failures[i+1:]...)
			return
		}
	}
}

// WaitForInitialization blocks until the running attempt settles or ctx is
// done. It returns nil once initialized, the failure error if the attempt
// failed, or ErrNotInitialized when nothing is running.
func (c *Coordinator) WaitForInitialization(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.state == StateInitialized:
		c.mu.Unlock()
		return nil
	case c.current == nil:
		err := c.lastErr
		c.mu.Unlock()
		if err != nil {
			return err
		}
		return ErrNotInitialized
	}
	a := c.current
	c.mu.Unlock()

	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cleanup cancels any running initialization and resets the coordinator to a
// fresh uninitialized state. Calling it more than once is harmless.
func (c *Coordinator) Cleanup() {
	c.mu.Lock()
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.current != nil {
		c.current.settle(ErrNotInitialized)
		c.current = nil
	}
	prev := c.state
	c.state = StateUninitialized
	c.config = nil
	c.lastErr = nil
	c.listeners = nil
	c.failures = nil
	c.mu.Unlock()

	c.metrics.SetInitializationState(int(StateUninitialized))
	if prev != StateUninitialized {
		c.log.InfoObj("sdk cleaned up", "sdk_cleanup", map[string]any{"previous_state": prev.String()})
	}
}

// CreateBannerAdRequest returns a default ad request from the network.
func (c *Coordinator) CreateBannerAdRequest() adnetwork.AdRequest {
	return c.network.NewAdRequest()
}

// SlotOptions configures a slot created through the coordinator.
type SlotOptions struct {
	ID       string
	Size     domain.AdSize
	Sink     EventSink
	Listener adnetwork.AdListener
}

// NewSlot creates an ad slot sharing the coordinator's collaborators. The
// slot fetches its own ad unit ID and starts loading immediately.
func (c *Coordinator) NewSlot(appCtx domain.AppContext, opts SlotOptions) (*Slot, error) {
	return NewSlot(SlotConfig{
		ID:         opts.ID,
		AppContext: appCtx,
		Size:       opts.Size,
		Fetcher:    c.fetcher,
		Manifest:   c.manifest,
		Network:    c.network,
		Sink:       opts.Sink,
		Listener:   opts.Listener,
		Logger:     c.log,
		Metrics:    c.metrics,
	})
}
