package ingest

import "fmt"

// StorageError reports a failed write.  It ends the run; Committed tells how
// many records were durably stored before the failure.
type StorageError struct {
	Op        string
	Committed int
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s failed after %d committed records: %v", e.Op, e.Committed, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ConfigurationError rejects a run before any row is read.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "ingestion not started: " + e.Reason
}
