package keepalive

import "errors"

// ErrInvalidURL indicates the ping target is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid ping url")

// ErrUnhealthyStatus indicates the target answered with a 4xx or 5xx status.
var ErrUnhealthyStatus = errors.New("unhealthy response status")

// ErrInvalidInterval indicates a non-positive ping interval.
var ErrInvalidInterval = errors.New("ping interval must be positive")
