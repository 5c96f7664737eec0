package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/mahimeta/mahimeta-go-sdk/internal/domain"
	"github.com/mahimeta/mahimeta-go-sdk/pkg/adnetwork"
)

const (
	creativePath     = "/creative"
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	maxSnippetLen    = 256
)

// View implements adnetwork.AdView backed by an HTML creative.
type View struct {
	network *Network

	mu        sync.Mutex
	adUnitID  string
	size      domain.AdSize
	listener  adnetwork.AdListener
	creative  *Creative
	paused    bool
	destroyed bool
	ctx       context.Context
	cancel    context.CancelFunc
}

func (v *View) SetAdUnitID(id string) {
	v.mu.Lock()
	v.adUnitID = strings.TrimSpace(id)
	v.mu.Unlock()
}

func (v *View) AdUnitID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.adUnitID
}

func (v *View) SetAdSize(size domain.AdSize) {
	v.mu.Lock()
	v.size = size
	v.mu.Unlock()
}

func (v *View) AdSize() domain.AdSize {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size
}

func (v *View) SetListener(l adnetwork.AdListener) {
	v.mu.Lock()
	v.listener = l
	v.mu.Unlock()
}

// Creative returns the currently loaded creative.
func (v *View) Creative() (Creative, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.creative == nil {
		return Creative{}, false
	}
	return *v.creative, true
}

// LoadAd fetches a creative in the background and reports the outcome to the listener.
func (v *View) LoadAd(req adnetwork.AdRequest) {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return
	}
	unitID := v.adUnitID
	ctx := v.ctx
	v.mu.Unlock()

	go v.load(ctx, req, unitID)
}

func (v *View) load(ctx context.Context, req adnetwork.AdRequest, unitID string) {
	if unitID == "" {
		v.fail(ctx, adnetwork.ErrCodeInvalidRequest, "ad unit id is empty")
		return
	}
	appID := v.network.AppID()
	if appID == "" {
		v.fail(ctx, adnetwork.ErrCodeInternal, "network is not initialized")
		return
	}

	query := map[string]string{
		"ad_unit_id": unitID,
		"app_id":     appID,
		"request_id": req.ID,
	}
	if req.ContentURL != "" {
		query["content_url"] = req.ContentURL
	}
	if len(req.Keywords) > 0 {
		query["keywords"] = strings.Join(req.Keywords, ",")
	}

	url := v.network.baseURL + creativePath
	resp, err := v.network.client.Get(ctx, url, query, map[string]string{"Accept": "text/html"})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		v.fail(ctx, adnetwork.ErrCodeNetwork, fmt.Sprintf("fetch creative: %v", err))
		return
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusNoContent || status == http.StatusNotFound:
		v.fail(ctx, adnetwork.ErrCodeNoFill, "no ad to show")
		return
	case status != http.StatusOK:
		v.fail(ctx, adnetwork.ErrCodeNetwork, fmt.Sprintf("creative returned status %d body: %s", status, snippet(resp.Body())))
		return
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}
	creative, err := parseCreative(body, url)
	if err != nil {
		v.fail(ctx, adnetwork.ErrCodeInternal, err.Error())
		return
	}
	if creative.IsEmpty() {
		v.fail(ctx, adnetwork.ErrCodeNoFill, "creative has no content")
		return
	}

	v.mu.Lock()
	if v.destroyed || ctx.Err() != nil {
		v.mu.Unlock()
		return
	}
	v.creative = &creative
	l := v.listener
	paused := v.paused
	v.mu.Unlock()

	v.network.log.DebugObj("web creative loaded", "creative", map[string]any{
		"ad_unit_id": unitID,
		"request_id": req.ID,
		"title":      creative.Title,
	})
	if l == nil {
		return
	}
	l.OnAdLoaded()
	if !paused {
		l.OnAdImpression()
	}
}

func (v *View) fail(ctx context.Context, code int, msg string) {
	v.mu.Lock()
	if v.destroyed || ctx.Err() != nil {
		v.mu.Unlock()
		return
	}
	l := v.listener
	v.mu.Unlock()

	if l != nil {
		l.OnAdFailedToLoad(adnetwork.LoadAdError{Code: code, Message: msg, Domain: Domain})
	}
}

// Click simulates a user tapping the creative. It returns the click-through URL.
func (v *View) Click() (string, bool) {
	v.mu.Lock()
	if v.destroyed || v.creative == nil {
		v.mu.Unlock()
		return "", false
	}
	target := v.creative.ClickURL
	l := v.listener
	v.mu.Unlock()

	if l != nil {
		l.OnAdClicked()
		l.OnAdOpened()
	}
	return target, true
}

// Close reports that the opened ad was dismissed.
func (v *View) Close() {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return
	}
	l := v.listener
	v.mu.Unlock()

	if l != nil {
		l.OnAdClosed()
	}
}

func (v *View) Resume() {
	v.mu.Lock()
	v.paused = false
	v.mu.Unlock()
}

func (v *View) Pause() {
	v.mu.Lock()
	v.paused = true
	v.mu.Unlock()
}

// Destroy cancels in-flight loads and drops the listener. Safe to call twice.
func (v *View) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.destroyed = true
	v.cancel()
	v.creative = nil
	v.listener = nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippetLen {
		return s[:maxSnippetLen]
	}
	return s
}
