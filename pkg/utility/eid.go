package utility

import (
	"sync"

	"github.com/google/uuid"
)

type ExecutionID = uuid.UUID

var (
	executionID     ExecutionID
	executionIDOnce sync.Once
)

// GetExecutionID returns a process-wide identifier for the current run.
// Every value object produced by a single simulation carries the same id,
// which makes mixed log streams attributable.
func GetExecutionID() ExecutionID {
	executionIDOnce.Do(func() {
		id, err := uuid.NewV7()
		if err != nil {
			panic(err)
		}
		executionID = id
	})
	return executionID
}
