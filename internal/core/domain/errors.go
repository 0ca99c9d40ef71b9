package domain

import "errors"

// Fetch and navigation failures. NetworkFailure and MalformedResponse are
// shown to users as the same generic message.
var (
	ErrNetworkFailure    = errors.New("crime data request failed")
	ErrPayloadTooLarge   = errors.New("area contains more than 10,000 crimes")
	ErrMalformedResponse = errors.New("crime data response is not valid JSON")
	ErrNoAreaSelected    = errors.New("no area selected")
)

// Input validation failures.
var (
	ErrPolygonTooSmall = errors.New("polygon needs at least 3 distinct vertices")
	ErrInvalidPolygon  = errors.New("invalid polygon")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidMode     = errors.New("invalid render mode")
	ErrTrendNotFound   = errors.New("trend not found")
)

// User-facing banner texts.
const (
	MessageTooManyResults = "The area you have selected contains more than 10,000 crimes. Please try restricting the field."
	MessageFetchFailed    = "Could not load crime data. Please try again."
	MessageNoAreaSelected = "You must select a valid area on the map first. If you already selected it, it's possible you are now on a month with too many crimes. Please try selecting a month and area on the map page and then try again."
)
