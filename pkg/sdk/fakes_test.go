package sdk

import (
	"context"
	"sync"
	"time"

	"github.com/mahimeta/mahimeta-go-sdk/internal/domain"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/adnetwork"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/events"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/manifest"
)

var testConfig = domain.AdConfig{ID: "1", PublisherAppID: "ca-app-pub-X", AdUnitID: "unit-Y"}

// fakeFetcher returns cfg or err. When release is set each call waits for it.
type fakeFetcher struct {
	mu      sync.Mutex
	cfg     domain.AdConfig
	err     error
	calls   int
	ids     []string
	release chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{cfg: testConfig}
}

func (f *fakeFetcher) Fetch(_ context.Context, publisherID string) (domain.AdConfig, error) {
	f.mu.Lock()
	f.calls++
	f.ids = append(f.ids, publisherID)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.AdConfig{}, f.err
	}
	return f.cfg, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// fakeNetwork completes initialization asynchronously unless manual is set,
// in which case the test calls completeInit.
type fakeNetwork struct {
	mu         sync.Mutex
	manual     bool
	initErr    error
	initCalls  int
	appIDs     []string
	onComplete func(adnetwork.InitializationStatus)
	views      []*fakeView
	requests   int
}

func (n *fakeNetwork) Initialize(_ context.Context, _ domain.AppContext, appID string, onComplete func(adnetwork.InitializationStatus)) error {
	n.mu.Lock()
	n.initCalls++
	n.appIDs = append(n.appIDs, appID)
	if n.initErr != nil {
		err := n.initErr
		n.mu.Unlock()
		return err
	}
	n.onComplete = onComplete
	manual := n.manual
	n.mu.Unlock()

	if !manual {
		go onComplete(adnetwork.InitializationStatus{AppID: appID})
	}
	return nil
}

func (n *fakeNetwork) completeInit() {
	n.mu.Lock()
	fn := n.onComplete
	n.mu.Unlock()
	if fn != nil {
		fn(adnetwork.InitializationStatus{AppID: "late"})
	}
}

func (n *fakeNetwork) InitCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.initCalls
}

func (n *fakeNetwork) NewAdView(size domain.AdSize) adnetwork.AdView {
	v := &fakeView{size: size}
	n.mu.Lock()
	n.views = append(n.views, v)
	n.mu.Unlock()
	return v
}

func (n *fakeNetwork) NewAdRequest() adnetwork.AdRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests++
	return adnetwork.AdRequest{ID: "req", CreatedAt: time.Now()}
}

func (n *fakeNetwork) view(i int) *fakeView {
	n.mu.Lock()
	defer n.mu.Unlock()
	if i >= len(n.views) {
		return nil
	}
	return n.views[i]
}

func (n *fakeNetwork) viewCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.views)
}

// fakeView records calls; tests drive callbacks through listener().
type fakeView struct {
	mu        sync.Mutex
	unitID    string
	size      domain.AdSize
	l         adnetwork.AdListener
	loads     int
	paused    bool
	destroyed int
}

func (v *fakeView) SetAdUnitID(id string) {
	v.mu.Lock()
	v.unitID = id
	v.mu.Unlock()
}

func (v *fakeView) AdUnitID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unitID
}

func (v *fakeView) SetAdSize(size domain.AdSize) {
	v.mu.Lock()
	v.size = size
	v.mu.Unlock()
}

func (v *fakeView) AdSize() domain.AdSize {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size
}

func (v *fakeView) SetListener(l adnetwork.AdListener) {
	v.mu.Lock()
	v.l = l
	v.mu.Unlock()
}

func (v *fakeView) listener() adnetwork.AdListener {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.l
}

func (v *fakeView) LoadAd(adnetwork.AdRequest) {
	v.mu.Lock()
	v.loads++
	v.mu.Unlock()
}

func (v *fakeView) Loads() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loads
}

func (v *fakeView) Resume() {
	v.mu.Lock()
	v.paused = false
	v.mu.Unlock()
}

func (v *fakeView) Pause() {
	v.mu.Lock()
	v.paused = true
	v.mu.Unlock()
}

func (v *fakeView) Destroy() {
	v.mu.Lock()
	v.destroyed++
	v.mu.Unlock()
}

func (v *fakeView) Destroyed() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}

// recordingSink captures published events.
type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingSink) Publish(_ context.Context, evt events.Event) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	if r.err != nil {
		return 0, r.err
	}
	return 1, nil
}

func (r *recordingSink) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// recordingMetrics counts calls by label.
type recordingMetrics struct {
	mu           sync.Mutex
	fetches      map[string]int
	states       []int
	adEvents     map[string]int
	sinkFailures map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		fetches:      map[string]int{},
		adEvents:     map[string]int{},
		sinkFailures: map[string]int{},
	}
}

func (m *recordingMetrics) IncrementConfigFetches(caller, outcome string) {
	m.mu.Lock()
	m.fetches[caller+"/"+outcome]++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordConfigFetchLatency(string, time.Duration) {}

func (m *recordingMetrics) SetInitializationState(state int) {
	m.mu.Lock()
	m.states = append(m.states, state)
	m.mu.Unlock()
}

func (m *recordingMetrics) IncrementAdEvents(eventType string) {
	m.mu.Lock()
	m.adEvents[eventType]++
	m.mu.Unlock()
}

func (m *recordingMetrics) IncrementSinkFailures(eventType string) {
	m.mu.Lock()
	m.sinkFailures[eventType]++
	m.mu.Unlock()
}

func (m *recordingMetrics) count(table map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return table[key]
}

func appContext() domain.AppContext {
	return domain.ApplicationContext("com.example.app")
}

func testManifest() manifest.Reader {
	return manifest.New("com.example.app", "pub-123")
}
