package adconfig

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork matches transport failures, timeouts, non-200 statuses and
	// responses the server marked unsuccessful.
	ErrNetwork = errors.New("ad config network error")
	// ErrDeserialization matches malformed response bodies.
	ErrDeserialization = errors.New("ad config deserialization error")
)

// Kind identifies why a fetch failed.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindTimeout
	KindStatus
	KindRejected
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindRejected:
		return "rejected"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// FetchError describes a failed ad config fetch.
type FetchError struct {
	Kind        Kind
	PublisherID string
	StatusCode  int
	Body        string
	Err         error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("ad config for publisher %q returned status %d body: %s", e.PublisherID, e.StatusCode, e.Body)
	case KindRejected:
		return fmt.Sprintf("ad config for publisher %q was rejected by the server", e.PublisherID)
	case KindDecode:
		return fmt.Sprintf("decode ad config for publisher %q: %v", e.PublisherID, e.Err)
	default:
		return fmt.Sprintf("fetch ad config for publisher %q (%s): %v", e.PublisherID, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets callers match the error taxonomy with errors.Is.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind != KindDecode
	case ErrDeserialization:
		return e.Kind == KindDecode
	}
	return false
}
