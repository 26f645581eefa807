package indexer

import (
	"errors"
	"fmt"
)

var (
	// ErrRunInProgress is returned when Run is called while another run is active.
	ErrRunInProgress = errors.New("ingestion already in progress")

	// ErrCountMismatch means the collection does not hold exactly the chunks produced.
	ErrCountMismatch = errors.New("collection record count does not match chunk count")
)

// IngestError reports the stage an ingestion run failed in and how many
// chunks had already been committed to the index. Committed chunks are not
// rolled back; re-running ingestion rebuilds the collection from scratch.
type IngestError struct {
	Stage     State
	Committed int
	Err       error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingestion failed during %s (%d chunks committed): %v", e.Stage, e.Committed, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}
