package history

import "fmt"

var (
	// ErrPersistence wraps storage failures on the audit path.
	ErrPersistence = fmt.Errorf("history persistence failed")
	// ErrExportUnavailable is returned when no export storage is configured.
	ErrExportUnavailable = fmt.Errorf("history export storage not configured")
)
