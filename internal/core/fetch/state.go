// Package fetch holds the crime request lifecycle as a pure reducer.
//
// Each submitted query gets a sequence number; completions carrying any
// other number than the latest are stale and dropped, so a slow early
// response can never overwrite a newer one.
package fetch

import (
	"errors"
	"time"

	"github.com/crimestat/crimestat/internal/core/domain"
)

// DefaultDismissAfter is how long transient banners stay on the map view.
const DefaultDismissAfter = 7 * time.Second

// State is owned by exactly one view. Treat it as a value.
type State struct {
	Status  domain.FetchStatus
	Records []domain.CrimeRecord
	// Seq is the latest sequence number issued.
	Seq uint64
	// Succeeded mirrors whether the last completed fetch delivered records.
	Succeeded bool
	Message   string
	// BannerUntil is when a TooManyResults/Error banner reverts to Idle.
	// Zero means the banner is persistent.
	BannerUntil time.Time
	// DismissAfter is the banner lifetime; zero keeps banners until the next fetch.
	DismissAfter time.Duration
	// Generation increments whenever Records is replaced.
	Generation uint64
}

// Event is an input to Reduce.
type Event interface{ isEvent() }

// Submitted starts a new request. Seq must be greater than every earlier one.
type Submitted struct{ Seq uint64 }

// Succeeded delivers records for Seq.
type Succeeded struct {
	Seq     uint64
	Records []domain.CrimeRecord
}

// Failed reports an error for Seq at time At.
type Failed struct {
	Seq uint64
	Err error
	At  time.Time
}

// Tick advances time; expired banners revert to Idle.
type Tick struct{ At time.Time }

func (Submitted) isEvent() {}
func (Succeeded) isEvent() {}
func (Failed) isEvent()    {}
func (Tick) isEvent()      {}

// New returns an Idle state whose banners last dismissAfter.
func New(dismissAfter time.Duration) State {
	return State{Status: domain.FetchIdle, DismissAfter: dismissAfter}
}

// Reduce applies ev to s and returns the next state.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case Submitted:
		if e.Seq <= s.Seq {
			return s
		}
		s.Seq = e.Seq
		s.Status = domain.FetchLoading
		s.Message = ""
		s.BannerUntil = time.Time{}
		return s

	case Succeeded:
		if e.Seq != s.Seq || s.Status != domain.FetchLoading {
			return s
		}
		s.Status = domain.FetchSuccess
		s.Records = e.Records
		s.Succeeded = true
		s.Generation++
		return s

	case Failed:
		if e.Seq != s.Seq || s.Status != domain.FetchLoading {
			return s
		}
		if errors.Is(e.Err, domain.ErrPayloadTooLarge) {
			// The previous record set stays as it was.
			s.Status = domain.FetchTooManyResults
			s.Message = domain.MessageTooManyResults
		} else {
			s.Status = domain.FetchError
			s.Message = domain.MessageFetchFailed
			s.Records = nil
			s.Succeeded = false
			s.Generation++
		}
		if s.DismissAfter > 0 {
			s.BannerUntil = e.At.Add(s.DismissAfter)
		}
		return s

	case Tick:
		return expire(s, e.At)
	}
	return s
}

// At returns s as it looks at time now, with expired banners cleared.
func At(s State, now time.Time) State {
	return expire(s, now)
}

func expire(s State, now time.Time) State {
	if s.Status != domain.FetchTooManyResults && s.Status != domain.FetchError {
		return s
	}
	if s.BannerUntil.IsZero() || now.Before(s.BannerUntil) {
		return s
	}
	s.Status = domain.FetchIdle
	s.Message = ""
	s.BannerUntil = time.Time{}
	return s
}

// Banner returns the message to display, if any.
func Banner(s State) *domain.Banner {
	if s.Message == "" {
		return nil
	}
	b := &domain.Banner{Message: s.Message}
	if !s.BannerUntil.IsZero() {
		until := s.BannerUntil
		b.ExpiresAt = &until
	}
	return b
}

// StatusOf classifies a fetch error into the status it produces.
func StatusOf(err error) domain.FetchStatus {
	switch {
	case err == nil:
		return domain.FetchSuccess
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return domain.FetchTooManyResults
	default:
		return domain.FetchError
	}
}
