package domain

import "fmt"

// Domain contains core models shared by the SDK packages.

// AdConfig is the resolved ad configuration for a publisher.
type AdConfig struct {
	ID             string `json:"id"`
	PublisherAppID string `json:"publisher_app_id"`
	AdUnitID       string `json:"ad_unit_id"`
}

// ContextScope describes which part of the host application a context belongs to.
type ContextScope int

const (
	ScopeUnknown ContextScope = iota
	ScopeApplication
	ScopeActivity
	ScopeService
)

func (s ContextScope) String() string {
	switch s {
	case ScopeApplication:
		return "application"
	case ScopeActivity:
		return "activity"
	case ScopeService:
		return "service"
	default:
		return "unknown"
	}
}

// AppContext is the host application handle passed to the SDK.
type AppContext struct {
	PackageName string
	Scope       ContextScope
}

// ApplicationContext returns an application-scoped context for the given package.
func ApplicationContext(packageName string) AppContext {
	return AppContext{PackageName: packageName, Scope: ScopeApplication}
}

// IsApplication reports whether the context is application-scoped.
func (c AppContext) IsApplication() bool { return c.Scope == ScopeApplication }

// AdSize is the caller-supplied size descriptor for an ad slot.
type AdSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BannerSize is the standard 320x50 banner.
var BannerSize = AdSize{Width: 320, Height: 50}

func (s AdSize) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// IsZero reports whether no size was supplied.
func (s AdSize) IsZero() bool { return s.Width == 0 && s.Height == 0 }
