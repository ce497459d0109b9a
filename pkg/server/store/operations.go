package store

import (
	"time"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// OperationsQuery filters the operation trail. Zero values mean "any".
type OperationsQuery struct {
	Username string
	Action   string
	Kind     string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// OperationsStore abstracts the read side of the operation trail. Rows are
// written by the audit store, never through this interface.
type OperationsStore interface {
	// ListOperations returns trail entries matching q, newest first.
	ListOperations(q OperationsQuery) ([]model.OperationLog, error)

	// CountOperations returns the count of entries matching q.
	CountOperations(q OperationsQuery) (int64, error)
}
