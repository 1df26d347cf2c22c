// Package errs defines the stable per-kind sentinel errors from spec §7,
// usable with errors.Is across package boundaries.
package errs

import "errors"

var (
	// ErrConfig signals a configuration load or validation failure.
	ErrConfig = errors.New("configuration error")
	// ErrPerFile signals a recoverable error scoped to a single file
	// (permission denied, vanished mid-scan, unreadable); the pipeline
	// keeps going and reports it through the error channel.
	ErrPerFile = errors.New("per-file error")
	// ErrCacheIO signals a hash-cache read/write failure.
	ErrCacheIO = errors.New("cache I/O error")
	// ErrTransport signals a frame-protocol violation or connection
	// failure between the tunnel client and the remote server.
	ErrTransport = errors.New("transport error")
	// ErrRemoteBootstrap signals failure to launch or reach the remote
	// server (SSH dial, tunnel timeout, missing remote binary).
	ErrRemoteBootstrap = errors.New("remote bootstrap error")
	// ErrAction signals a delete/move/copy action failure during
	// execution.
	ErrAction = errors.New("action execution error")
)
