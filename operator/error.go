package operator

import (
	"errors"
	"fmt"
)

// DuplicateCheckpointError reports committables grouped into a checkpoint
// the operator has already aggregated. This means the host replayed or
// duplicated data in a way that would corrupt exactly-once guarantees, so
// it is fatal: never retried, never merged.
type DuplicateCheckpointError struct {
	CheckpointID int64
}

func (e *DuplicateCheckpointError) Error() string {
	return fmt.Sprintf("repeated committables for checkpoint %d", e.CheckpointID)
}

func AsDuplicateCheckpointError(err error) (*DuplicateCheckpointError, bool) {
	var de *DuplicateCheckpointError
	if errors.As(err, &de) {
		return de, true
	}

	return nil, false
}
