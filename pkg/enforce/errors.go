package enforce

import "errors"

var (
	// ErrConfiguration reports a vocabulary or sentinel resolution failure.
	// It is fatal; generation must not be attempted with a broken table.
	ErrConfiguration = errors.New("enforce: configuration error")

	// ErrAlreadyInstalled reports Install on an interceptor whose previous
	// installation was never released. The captured pipeline state would be
	// corrupted by a second capture, so this is treated as a programmer
	// error rather than silently re-patching.
	ErrAlreadyInstalled = errors.New("enforce: interceptor already installed")

	// ErrReportConsumed reports a second GenerateReport call on the same
	// collector.
	ErrReportConsumed = errors.New("enforce: diagnostic report already generated")
)
