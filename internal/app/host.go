package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mahimeta/mahimeta-go-sdk/internal/config"
	"github.com/mahimeta/mahimeta-go-sdk/internal/domain"
	"github.com/mahimeta/mahimeta-go-sdk/internal/logger"
	"github.com/mahimeta/mahimeta-go-sdk/internal/metrics"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/adconfig"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/adnetwork/web"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/events"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/httpclient"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/manifest"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/sdk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 5 * time.Second

// Host is the reference host application. It owns every SDK component, runs
// initialization, keeps a set of ad slots alive and tears everything down on
// shutdown.
type Host struct {
	cfg         *config.Config
	log         logger.Logger
	appCtx      domain.AppContext
	coordinator *sdk.Coordinator
	fanout      *events.Fanout
	registry    *prometheus.Registry

	mu    sync.Mutex
	slots []*sdk.Slot
}

// NewHost builds the host runtime from config.
func NewHost(ctx context.Context, cfg *config.Config, log logger.Logger) (*Host, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reader, err := loadManifest(cfg)
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sdkMetrics, err := metrics.NewPrometheusRegistry(promReg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	client := httpclient.NewRestyClient(cfg.RequestTimeout)
	fetcher := adconfig.NewFetcher(cfg.APIBaseURL, client)
	network := web.New(web.Options{
		CreativeBaseURL: cfg.CreativeBaseURL,
		Client:          client,
		Logger:          log,
	})

	coordinator, err := sdk.NewCoordinator(sdk.Options{
		Fetcher:  fetcher,
		Manifest: reader,
		Network:  network,
		Logger:   log,
		Metrics:  sdkMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build coordinator: %w", err)
	}

	log.InfoObj("host components ready", "host_config", map[string]any{
		"api_endpoint":  fetcher.Endpoint(),
		"creative_base": cfg.CreativeBaseURL,
		"event_sinks":   fanout.Size(),
		"slot_count":    cfg.SlotCount,
	})

	return &Host{
		cfg:         cfg,
		log:         log,
		appCtx:      domain.ApplicationContext(cfg.AppPackage),
		coordinator: coordinator,
		fanout:      fanout,
		registry:    promReg,
	}, nil
}

func loadManifest(cfg *config.Config) (manifest.Reader, error) {
	if cfg.ManifestFile == "" {
		return manifest.New(cfg.AppPackage, cfg.PublisherID), nil
	}
	m, err := manifest.LoadFile(cfg.ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	return m, nil
}

// buildFanout returns an empty fanout when no events file is configured.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*events.Fanout, error) {
	if cfg.EventsFile == "" {
		return events.NewFanout(nil), nil
	}

	sinkReg, err := events.LoadRegistry(cfg.EventsFile)
	if err != nil {
		return nil, fmt.Errorf("load events registry: %w", err)
	}
	enabled := sinkReg.Enabled()
	sinks, err := events.BuildAll(ctx, events.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build event sinks: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, s := range enabled {
		summaries = append(summaries, map[string]string{"id": s.ID, "type": s.Type})
	}
	log.InfoObj("event sinks loaded", "events_meta", map[string]any{
		"count": len(summaries),
		"sinks": summaries,
	})
	return events.NewFanout(sinks), nil
}

// Coordinator exposes the SDK coordinator owned by the host.
func (h *Host) Coordinator() *sdk.Coordinator { return h.coordinator }

// Slots returns the slots created by Run.
func (h *Host) Slots() []*sdk.Slot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*sdk.Slot(nil), h.slots...)
}

// Run initializes the SDK, creates the configured slots and keeps them loaded
// until ctx is cancelled.
func (h *Host) Run(ctx context.Context) error {
	if h == nil || h.coordinator == nil {
		return fmt.Errorf("host is not initialized")
	}
	defer h.shutdown()

	if h.cfg.MetricsAddr != "" {
		srv := h.startServer(ctx)
		defer h.stopServer(srv)
	}

	h.coordinator.AddFailureListener(func(err error) {
		h.log.ErrorObj("sdk initialization failed", "error", err.Error())
	})
	if err := h.coordinator.Initialize(h.appCtx); err != nil {
		return fmt.Errorf("initialize sdk: %w", err)
	}
	if err := h.coordinator.WaitForInitialization(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("wait for sdk: %w", err)
	}

	if err := h.createSlots(); err != nil {
		return err
	}

	h.log.InfoObj("host running", "host_state", map[string]any{
		"slots":           len(h.Slots()),
		"reload_interval": h.cfg.ReloadInterval.String(),
	})

	if h.cfg.ReloadInterval <= 0 {
		<-ctx.Done()
		h.log.InfoObj("host exiting", "reason", ctx.Err().Error())
		return nil
	}

	ticker := time.NewTicker(h.cfg.ReloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("host exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			h.reloadSlots()
		}
	}
}

func (h *Host) createSlots() error {
	size := domain.AdSize{Width: h.cfg.SlotWidth, Height: h.cfg.SlotHeight}
	for i := 0; i < h.cfg.SlotCount; i++ {
		slot, err := h.coordinator.NewSlot(h.appCtx, sdk.SlotOptions{
			ID:   fmt.Sprintf("slot-%d", i+1),
			Size: size,
			Sink: h.fanout,
		})
		if err != nil {
			return fmt.Errorf("create slot %d: %w", i+1, err)
		}
		h.mu.Lock()
		h.slots = append(h.slots, slot)
		h.mu.Unlock()
	}
	return nil
}

func (h *Host) reloadSlots() {
	for _, slot := range h.Slots() {
		if err := slot.LoadAd(); err != nil {
			h.log.WarnObj("slot reload failed", "slot_reload", map[string]any{
				"slot_id": slot.ID(),
				"error":   err.Error(),
			})
		}
	}
}

// shutdown destroys slots before resetting the coordinator so no slot
// callback runs against a cleaned-up SDK.
func (h *Host) shutdown() {
	h.mu.Lock()
	slots := h.slots
	h.slots = nil
	h.mu.Unlock()

	for _, slot := range slots {
		slot.Destroy()
	}
	h.coordinator.Cleanup()
	if err := h.fanout.Close(); err != nil {
		h.log.WarnObj("closing event sinks failed", "error", err.Error())
	}
}

func (h *Host) stopServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		h.log.ErrorObj("error during server shutdown", "error", err.Error())
	}
}
