package sdk

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mahimeta/mahimeta-go-sdk/internal/domain"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/adnetwork"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slotFixture struct {
	fetcher *fakeFetcher
	network *fakeNetwork
	sink    *recordingSink
	metrics *recordingMetrics
	slot    *Slot
}

func newSlotFixture(t *testing.T, f *fakeFetcher, opts SlotOptions) *slotFixture {
	t.Helper()
	fx := &slotFixture{
		fetcher: f,
		network: &fakeNetwork{},
		sink:    &recordingSink{},
		metrics: newRecordingMetrics(),
	}
	c, err := NewCoordinator(Options{Fetcher: f, Manifest: testManifest(), Network: fx.network, Metrics: fx.metrics})
	require.NoError(t, err)

	if opts.Sink == nil {
		opts.Sink = fx.sink
	}
	fx.slot, err = c.NewSlot(appContext(), opts)
	require.NoError(t, err)
	t.Cleanup(fx.slot.Destroy)
	return fx
}

// loaded waits for the first view to request an ad and reports it loaded.
func (fx *slotFixture) loaded(t *testing.T) *fakeView {
	t.Helper()
	view := fx.network.view(0)
	require.NotNil(t, view)
	require.Eventually(t, func() bool { return view.Loads() == 1 }, waitFor, time.Millisecond)
	view.listener().OnAdLoaded()
	return view
}

func TestNewSlotValidatesCollaborators(t *testing.T) {
	_, err := NewSlot(SlotConfig{Manifest: testManifest(), Network: &fakeNetwork{}})
	assert.Error(t, err)
	_, err = NewSlot(SlotConfig{Fetcher: newFakeFetcher(), Network: &fakeNetwork{}})
	assert.Error(t, err)
	_, err = NewSlot(SlotConfig{Fetcher: newFakeFetcher(), Manifest: testManifest()})
	assert.Error(t, err)
}

func TestSlotFetchesUnitAndLoads(t *testing.T) {
	fx := newSlotFixture(t, newFakeFetcher(), SlotOptions{ID: "slot-1"})

	assert.True(t, fx.slot.IsLoading())
	assert.Equal(t, domain.BannerSize, fx.slot.AdSize())

	view := fx.loaded(t)
	assert.Equal(t, "unit-Y", view.AdUnitID())
	assert.Equal(t, domain.BannerSize, view.AdSize())
	assert.Equal(t, "unit-Y", fx.slot.AdUnitID())
	assert.False(t, fx.slot.IsLoading())
	assert.Equal(t, 1, fx.metrics.count(fx.metrics.fetches, "slot/success"))

	require.Eventually(t, func() bool { return len(fx.sink.types()) == 1 }, waitFor, time.Millisecond)
	fx.sink.mu.Lock()
	evt := fx.sink.events[0]
	fx.sink.mu.Unlock()
	assert.Equal(t, events.TypeLoaded, evt.Type)
	assert.Equal(t, "slot-1", evt.SlotID)
	assert.Equal(t, "unit-Y", evt.AdUnitID)
	assert.Equal(t, "pub-123", evt.PublisherID)
	assert.Equal(t, 1, fx.metrics.count(fx.metrics.adEvents, "loaded"))
}

func TestSlotLoadAdWhilePendingIsNoop(t *testing.T) {
	f := newFakeFetcher()
	f.release = make(chan struct{})
	fx := newSlotFixture(t, f, SlotOptions{})

	require.Eventually(t, func() bool { return f.Calls() == 1 }, waitFor, time.Millisecond)
	require.NoError(t, fx.slot.LoadAd())
	require.NoError(t, fx.slot.LoadAd())

	close(f.release)
	view := fx.network.view(0)
	require.Eventually(t, func() bool { return view.Loads() == 1 }, waitFor, time.Millisecond)

	// Still loading until the view reports back.
	require.NoError(t, fx.slot.LoadAd())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, f.Calls())
	assert.Equal(t, 1, view.Loads())
}

func TestSlotLoadAdReusesUnitID(t *testing.T) {
	fx := newSlotFixture(t, newFakeFetcher(), SlotOptions{})
	view := fx.loaded(t)

	require.NoError(t, fx.slot.LoadAd())
	assert.Equal(t, 2, view.Loads())
	assert.True(t, fx.slot.IsLoading())
	assert.Equal(t, 1, fx.fetcher.Calls())
}

func TestSlotFetchFailureAllowsRetry(t *testing.T) {
	f := newFakeFetcher()
	f.setErr(errors.New("boom"))
	fx := newSlotFixture(t, f, SlotOptions{})

	require.Eventually(t, func() bool { return !fx.slot.IsLoading() }, waitFor, time.Millisecond)
	view := fx.network.view(0)
	assert.Zero(t, view.Loads())
	assert.Empty(t, fx.slot.AdUnitID())

	f.setErr(nil)
	require.NoError(t, fx.slot.LoadAd())
	require.Eventually(t, func() bool { return view.Loads() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, 2, f.Calls())
	assert.Equal(t, "unit-Y", view.AdUnitID())
}

func TestSlotFailedLoadClearsPending(t *testing.T) {
	fx := newSlotFixture(t, newFakeFetcher(), SlotOptions{})
	view := fx.network.view(0)
	require.Eventually(t, func() bool { return view.Loads() == 1 }, waitFor, time.Millisecond)

	view.listener().OnAdFailedToLoad(adnetwork.LoadAdError{Code: adnetwork.ErrCodeNoFill, Message: "no fill"})
	assert.False(t, fx.slot.IsLoading())

	require.Eventually(t, func() bool { return len(fx.sink.types()) == 1 }, waitFor, time.Millisecond)
	fx.sink.mu.Lock()
	evt := fx.sink.events[0]
	fx.sink.mu.Unlock()
	assert.Equal(t, events.TypeFailedToLoad, evt.Type)
	assert.Contains(t, evt.Error, "no fill")
}

func TestSlotSetAdSizeRebuildsView(t *testing.T) {
	fx := newSlotFixture(t, newFakeFetcher(), SlotOptions{})
	old := fx.loaded(t)
	oldListener := old.listener()

	require.NoError(t, fx.slot.SetAdSize(domain.BannerSize))
	assert.Equal(t, 1, fx.network.viewCount())

	large := domain.AdSize{Width: 300, Height: 250}
	require.NoError(t, fx.slot.SetAdSize(large))
	assert.Equal(t, 2, fx.network.viewCount())
	assert.Equal(t, 1, old.Destroyed())
	assert.Equal(t, large, fx.slot.AdSize())

	fresh := fx.network.view(1)
	assert.Equal(t, large, fresh.AdSize())
	require.Eventually(t, func() bool { return fresh.Loads() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, 2, fx.fetcher.Calls())

	// The replaced view's callbacks no longer reach the slot.
	oldListener.OnAdClicked()
	assert.True(t, fx.slot.IsLoading())
	oldListener.OnAdLoaded()
	assert.True(t, fx.slot.IsLoading())

	assert.Error(t, fx.slot.SetAdSize(domain.AdSize{}))
}

func TestSlotDestroy(t *testing.T) {
	fx := newSlotFixture(t, newFakeFetcher(), SlotOptions{})
	view := fx.loaded(t)
	l := view.listener()

	fx.slot.Destroy()
	fx.slot.Destroy()

	assert.Equal(t, 1, view.Destroyed())
	assert.Nil(t, fx.slot.View())
	assert.ErrorIs(t, fx.slot.LoadAd(), ErrSlotDestroyed)
	assert.ErrorIs(t, fx.slot.SetAdSize(domain.AdSize{Width: 1, Height: 1}), ErrSlotDestroyed)

	before := fx.metrics.count(fx.metrics.adEvents, "impression")
	l.OnAdImpression()
	assert.Equal(t, before, fx.metrics.count(fx.metrics.adEvents, "impression"))

	fx.slot.Resume()
	fx.slot.Pause()
}

func TestSlotDestroyBeforeFetchCompletes(t *testing.T) {
	f := newFakeFetcher()
	f.release = make(chan struct{})
	fx := newSlotFixture(t, f, SlotOptions{})
	require.Eventually(t, func() bool { return f.Calls() == 1 }, waitFor, time.Millisecond)

	fx.slot.Destroy()
	close(f.release)
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, fx.network.view(0).Loads())
	assert.Empty(t, fx.slot.AdUnitID())
}

func TestSlotReloadAfter(t *testing.T) {
	fx := newSlotFixture(t, newFakeFetcher(), SlotOptions{})
	view := fx.loaded(t)

	fx.slot.ReloadAfter(10 * time.Millisecond)
	require.Eventually(t, func() bool { return view.Loads() == 2 }, waitFor, time.Millisecond)
	view.listener().OnAdLoaded()

	fx.slot.ReloadAfter(50 * time.Millisecond)
	fx.slot.Destroy()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, view.Loads())
}

func TestSlotPauseResumeDelegate(t *testing.T) {
	fx := newSlotFixture(t, newFakeFetcher(), SlotOptions{})
	view := fx.network.view(0)

	fx.slot.Pause()
	view.mu.Lock()
	assert.True(t, view.paused)
	view.mu.Unlock()

	fx.slot.Resume()
	view.mu.Lock()
	assert.False(t, view.paused)
	view.mu.Unlock()
}

type countingListener struct {
	adnetwork.BaseListener
	loaded, clicked, opened, closed atomic.Int32
}

func (c *countingListener) OnAdLoaded()  { c.loaded.Add(1) }
func (c *countingListener) OnAdClicked() { c.clicked.Add(1) }
func (c *countingListener) OnAdOpened()  { c.opened.Add(1) }
func (c *countingListener) OnAdClosed()  { c.closed.Add(1) }

func TestSlotForwardsCallbacksAndEvents(t *testing.T) {
	fwd := &countingListener{}
	fx := newSlotFixture(t, newFakeFetcher(), SlotOptions{Listener: fwd})
	view := fx.loaded(t)

	l := view.listener()
	l.OnAdImpression()
	l.OnAdClicked()
	l.OnAdOpened()
	l.OnAdClosed()

	assert.Equal(t, int32(1), fwd.loaded.Load())
	assert.Equal(t, int32(1), fwd.clicked.Load())
	assert.Equal(t, int32(1), fwd.opened.Load())
	assert.Equal(t, int32(1), fwd.closed.Load())

	require.Eventually(t, func() bool { return len(fx.sink.types()) == 5 }, waitFor, time.Millisecond)
	assert.ElementsMatch(t, []events.Type{
		events.TypeLoaded, events.TypeImpression, events.TypeClicked, events.TypeOpened, events.TypeClosed,
	}, fx.sink.types())
}

func TestSlotCountsSinkFailures(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	fx := newSlotFixture(t, newFakeFetcher(), SlotOptions{Sink: sink})
	fx.loaded(t)

	require.Eventually(t, func() bool {
		return fx.metrics.count(fx.metrics.sinkFailures, "loaded") == 1
	}, waitFor, time.Millisecond)
}

func TestSlotReloadDefaultDelay(t *testing.T) {
	fx := newSlotFixture(t, newFakeFetcher(), SlotOptions{})
	fx.slot.ReloadAfter(0)

	fx.slot.mu.Lock()
	defer fx.slot.mu.Unlock()
	require.NotNil(t, fx.slot.reload)
	assert.True(t, fx.slot.reload.Stop())
	fx.slot.reload = nil
}
