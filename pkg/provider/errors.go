package provider

import "errors"

var (
	// ErrNotConfigured means the provider is enabled but credentials are
	// missing. The provider stays inert.
	ErrNotConfigured = errors.New("sync provider not configured")

	// ErrConnection wraps every transport failure during connect, list,
	// create or update.
	ErrConnection = errors.New("remote unreachable")

	// ErrNotConnected is returned by Sync before a successful Connect.
	ErrNotConnected = errors.New("sync provider not connected")

	// ErrRecordGone means an update targeted a remote record that no longer
	// exists. The task is skipped for this cycle.
	ErrRecordGone = errors.New("remote record gone")
)
