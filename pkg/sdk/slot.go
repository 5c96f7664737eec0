package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mahimeta/mahimeta-go-sdk/internal/domain"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/adconfig"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/adnetwork"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/events"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/manifest"
)

const (
	// DefaultReloadDelay is used by ReloadAfter for non-positive delays.
	DefaultReloadDelay = 30 * time.Second

	eventPublishTimeout = 10 * time.Second
)

// SlotConfig holds everything a standalone slot needs.
type SlotConfig struct {
	ID         string
	AppContext domain.AppContext
	Size       domain.AdSize
	Fetcher    adconfig.ConfigFetcher
	Manifest   manifest.Reader
	Network    adnetwork.Network
	// Sink receives every lifecycle callback as an events.Event. Optional.
	Sink EventSink
	// Listener gets the view callbacks forwarded after the slot handled them. Optional.
	Listener adnetwork.AdListener
	Logger   Logger
	Metrics  Metrics
}

// Slot is a self-managing ad placement. It looks up its ad unit ID on its own
// and loads an ad into the view it owns.
type Slot struct {
	id       string
	appCtx   domain.AppContext
	fetcher  adconfig.ConfigFetcher
	manifest manifest.Reader
	network  adnetwork.Network
	sink     EventSink
	forward  adnetwork.AdListener
	log      Logger
	metrics  Metrics

	mu          sync.Mutex
	view        adnetwork.AdView
	viewGen     uint64
	viewCtx     context.Context
	viewCancel  context.CancelFunc
	size        domain.AdSize
	adUnitID    string
	publisherID string
	loading     bool
	destroyed   bool
	reload      *time.Timer
}

// NewSlot builds the view, marks a load in progress and starts fetching the
// ad unit ID in the background.
func NewSlot(cfg SlotConfig) (*Slot, error) {
	switch {
	case cfg.Fetcher == nil:
		return nil, errors.New("slot: fetcher is required")
	case cfg.Manifest == nil:
		return nil, errors.New("slot: manifest reader is required")
	case cfg.Network == nil:
		return nil, errors.New("slot: ad network is required")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Size.IsZero() {
		cfg.Size = domain.BannerSize
	}

	s := &Slot{
		id:       cfg.ID,
		appCtx:   cfg.AppContext,
		fetcher:  cfg.Fetcher,
		manifest: cfg.Manifest,
		network:  cfg.Network,
		sink:     cfg.Sink,
		forward:  cfg.Listener,
		log:      ensureLogger(cfg.Logger),
		metrics:  ensureMetrics(cfg.Metrics),
		size:     cfg.Size,
	}

	s.mu.Lock()
	ctx, gen := s.replaceViewLocked()
	s.loading = true
	s.mu.Unlock()

	go s.fetchAndLoad(ctx, gen)
	return s, nil
}

// replaceViewLocked builds a fresh view at s.size and makes it current.
// The caller destroys the previous view outside the lock.
func (s *Slot) replaceViewLocked() (context.Context, uint64) {
	if s.viewCancel != nil {
		s.viewCancel()
	}
	s.viewGen++
	gen := s.viewGen
	ctx, cancel := context.WithCancel(context.Background())
	s.viewCtx = ctx
	s.viewCancel = cancel

	view := s.network.NewAdView(s.size)
	view.SetListener(&slotListener{slot: s, gen: gen})
	if s.adUnitID != "" {
		view.SetAdUnitID(s.adUnitID)
	}
	s.view = view
	return ctx, gen
}

// fetchAndLoad resolves the ad unit ID and loads an ad into the view of gen.
func (s *Slot) fetchAndLoad(ctx context.Context, gen uint64) {
	publisherID, err := s.manifest.PublisherID(s.appCtx)
	if err != nil {
		s.fetchFailed(gen, fmt.Errorf("read publisher id: %w", err))
		return
	}

	cfg, err := timedFetch(ctx, s.fetcher, s.metrics, callerSlot, publisherID)
	if err != nil {
		s.fetchFailed(gen, fmt.Errorf("fetch ad config: %w", err))
		return
	}

	s.mu.Lock()
	if s.destroyed || gen != s.viewGen {
		s.mu.Unlock()
		return
	}
	s.adUnitID = cfg.AdUnitID
	s.publisherID = publisherID
	view := s.view
	view.SetAdUnitID(cfg.AdUnitID)
	s.mu.Unlock()

	s.log.DebugObj("ad slot loading", "ad_slot", map[string]any{
		"slot_id":    s.id,
		"ad_unit_id": cfg.AdUnitID,
	})
	view.LoadAd(s.network.NewAdRequest())
}

func (s *Slot) fetchFailed(gen uint64, err error) {
	s.mu.Lock()
	if s.destroyed || gen != s.viewGen {
		s.mu.Unlock()
		return
	}
	s.loading = false
	s.mu.Unlock()

	s.log.ErrorObj("ad slot config fetch failed", "ad_slot", map[string]any{
		"slot_id": s.id,
		"error":   err.Error(),
	})
}

// ID returns the slot identifier used in events.
func (s *Slot) ID() string { return s.id }

// AdUnitID returns the assigned ad unit ID, empty until a fetch succeeded.
func (s *Slot) AdUnitID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adUnitID
}

// AdSize returns the current size.
func (s *Slot) AdSize() domain.AdSize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// IsLoading reports whether a fetch or ad load is pending.
func (s *Slot) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// View returns the current ad view, or nil after Destroy.
func (s *Slot) View() adnetwork.AdView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// LoadAd requests a new ad. It does nothing while another load is pending.
// A slot whose ad unit ID was never resolved repeats the lookup first.
func (s *Slot) LoadAd() error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSlotDestroyed
	}
	if s.loading {
		s.mu.Unlock()
		s.log.WarnObj("ad slot load skipped, already loading", "ad_slot", map[string]any{"slot_id": s.id})
		return nil
	}
	s.loading = true

	if s.adUnitID == "" {
		ctx, gen := s.viewCtx, s.viewGen
		s.mu.Unlock()
		go s.fetchAndLoad(ctx, gen)
		return nil
	}
	view := s.view
	s.mu.Unlock()

	view.LoadAd(s.network.NewAdRequest())
	return nil
}

// SetAdSize swaps in a view of the new size and reloads it. The same size is a no-op.
func (s *Slot) SetAdSize(size domain.AdSize) error {
	if size.IsZero() {
		return fmt.Errorf("invalid ad size %s", size)
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSlotDestroyed
	}
	if size == s.size {
		s.mu.Unlock()
		return nil
	}
	old := s.view
	s.size = size
	ctx, gen := s.replaceViewLocked()
	s.loading = true
	s.mu.Unlock()

	if old != nil {
		old.Destroy()
	}
	s.log.InfoObj("ad slot resized", "ad_slot", map[string]any{
		"slot_id": s.id,
		"size":    size.String(),
	})

	go s.fetchAndLoad(ctx, gen)
	return nil
}

// ReloadAfter schedules LoadAd after delay, replacing any earlier schedule.
func (s *Slot) ReloadAfter(delay time.Duration) {
	if delay <= 0 {
		delay = DefaultReloadDelay
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	if s.reload != nil {
		s.reload.Stop()
	}
	s.reload = time.AfterFunc(delay, func() {
		if err := s.LoadAd(); err != nil && !errors.Is(err, ErrSlotDestroyed) {
			s.log.WarnObj("ad slot reload failed", "ad_slot", map[string]any{"slot_id": s.id, "error": err.Error()})
		}
	})
}

func (s *Slot) Resume() {
	if v := s.View(); v != nil {
		v.Resume()
	}
}

func (s *Slot) Pause() {
	if v := s.View(); v != nil {
		v.Pause()
	}
}

// Destroy releases the view and cancels pending work. Safe to call twice.
func (s *Slot) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.loading = false
	if s.viewCancel != nil {
		s.viewCancel()
		s.viewCancel = nil
	}
	if s.reload != nil {
		s.reload.Stop()
		s.reload = nil
	}
	view := s.view
	s.view = nil
	s.mu.Unlock()

	if view != nil {
		view.Destroy()
	}
	s.log.DebugObj("ad slot destroyed", "ad_slot", map[string]any{"slot_id": s.id})
}

// current reports whether callbacks for gen should still be handled.
// settle also clears the loading flag.
func (s *Slot) current(gen uint64, settle bool) (adUnitID, publisherID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed || gen != s.viewGen {
		return "", "", false
	}
	if settle {
		s.loading = false
	}
	return s.adUnitID, s.publisherID, true
}

func (s *Slot) emit(typ events.Type, adUnitID, publisherID string, cause error) {
	s.metrics.IncrementAdEvents(string(typ))
	if s.sink == nil {
		return
	}

	evt := events.NewEvent(typ, s.id, adUnitID, publisherID)
	if cause != nil {
		evt.Error = cause.Error()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()
		if _, err := s.sink.Publish(ctx, evt); err != nil {
			s.metrics.IncrementSinkFailures(string(typ))
			s.log.WarnObj("ad event delivery failed", "ad_event", map[string]any{
				"slot_id":  s.id,
				"event_id": evt.ID,
				"type":     string(typ),
				"error":    err.Error(),
			})
		}
	}()
}

// slotListener binds view callbacks to the view generation that produced them.
type slotListener struct {
	slot *Slot
	gen  uint64
}

func (l *slotListener) OnAdLoaded() {
	unit, pub, ok := l.slot.current(l.gen, true)
	if !ok {
		return
	}
	l.slot.log.DebugObj("ad loaded", "ad_slot", map[string]any{"slot_id": l.slot.id, "ad_unit_id": unit})
	l.slot.emit(events.TypeLoaded, unit, pub, nil)
	if l.slot.forward != nil {
		l.slot.forward.OnAdLoaded()
	}
}

func (l *slotListener) OnAdFailedToLoad(err adnetwork.LoadAdError) {
	unit, pub, ok := l.slot.current(l.gen, true)
	if !ok {
		return
	}
	l.slot.log.WarnObj("ad failed to load", "ad_slot", map[string]any{
		"slot_id":    l.slot.id,
		"ad_unit_id": unit,
		"code":       err.Code,
		"domain":     err.Domain,
		"message":    err.Message,
	})
	l.slot.emit(events.TypeFailedToLoad, unit, pub, err)
	if l.slot.forward != nil {
		l.slot.forward.OnAdFailedToLoad(err)
	}
}

func (l *slotListener) OnAdOpened() {
	l.relay(events.TypeOpened, func(f adnetwork.AdListener) { f.OnAdOpened() })
}

func (l *slotListener) OnAdClicked() {
	l.relay(events.TypeClicked, func(f adnetwork.AdListener) { f.OnAdClicked() })
}

func (l *slotListener) OnAdClosed() {
	l.relay(events.TypeClosed, func(f adnetwork.AdListener) { f.OnAdClosed() })
}

func (l *slotListener) OnAdImpression() {
	l.relay(events.TypeImpression, func(f adnetwork.AdListener) { f.OnAdImpression() })
}

func (l *slotListener) relay(typ events.Type, fwd func(adnetwork.AdListener)) {
	unit, pub, ok := l.slot.current(l.gen, false)
	if !ok {
		return
	}
	l.slot.emit(typ, unit, pub, nil)
	if l.slot.forward != nil {
		fwd(l.slot.forward)
	}
}
