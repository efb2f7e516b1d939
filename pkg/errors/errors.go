package courier_errors

import "errors"

// Common errors
var (
	ErrUpstreamUnavailable = errors.New("upstream identity service unavailable")
	ErrUnknownBackend      = errors.New("unknown identity backend")
	ErrUnknownEventType    = errors.New("unknown event type")
	ErrInvalidCommand      = errors.New("invalid aggregation command")
	ErrRenderFailed        = errors.New("render failed")
	ErrDispatchFailed      = errors.New("dispatch failed")
)
