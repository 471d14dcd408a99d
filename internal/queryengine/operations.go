package queryengine

import (
	"github.com/vitaliisemenov/zqlz/internal/dbval"
)

// OperationKind names a bulk multi-row edit applied to a selected set of
// grid rows.
type OperationKind int

const (
	OpSetValue OperationKind = iota
	OpDelete
	OpDuplicate
)

// Operation is one multi-row edit: SetValue overwrites a column across every
// selected row, Delete drops the selected rows, Duplicate clones them.
type Operation struct {
	Kind      OperationKind
	ColumnIdx int
	Value     dbval.Value
}

// OperationResultKind tags which variant of OperationResult was produced.
type OperationResultKind int

const (
	ResultModified OperationResultKind = iota
	ResultDeleted
	ResultDuplicated
)

// OperationResult is execute's outcome: Modified rows, the indices Deleted,
// or the Duplicated row clones.
type OperationResult struct {
	Kind    OperationResultKind
	Rows    []dbval.Row // Modified or Duplicated rows
	Indices []int       // Deleted indices
}

// Execute applies op to the rows at indices (positions into rows).
// autoIncrement flags, by column position, the columns cleared to NULL on
// Duplicate; columns is not consulted.
func Execute(op Operation, rows []dbval.Row, indices []int, columns []dbval.ColumnDescriptor, autoIncrement []bool) (OperationResult, error) {
	switch op.Kind {
	case OpSetValue:
		modified := make([]dbval.Row, 0, len(indices))
		for _, idx := range indices {
			clone := cloneRow(rows[idx])
			if op.ColumnIdx >= 0 && op.ColumnIdx < len(clone) {
				clone[op.ColumnIdx] = op.Value
			}
			modified = append(modified, clone)
		}
		return OperationResult{Kind: ResultModified, Rows: modified}, nil

	case OpDelete:
		return OperationResult{Kind: ResultDeleted, Indices: indices}, nil

	case OpDuplicate:
		duplicated := make([]dbval.Row, 0, len(indices))
		for _, idx := range indices {
			clone := cloneRow(rows[idx])
			for i := range clone {
				if i < len(autoIncrement) && autoIncrement[i] {
					clone[i] = dbval.Null()
				}
			}
			duplicated = append(duplicated, clone)
		}
		return OperationResult{Kind: ResultDuplicated, Rows: duplicated}, nil

	default:
		return OperationResult{}, errUnknownOperation
	}
}

func cloneRow(row dbval.Row) dbval.Row {
	clone := make(dbval.Row, len(row))
	copy(clone, row)
	return clone
}

var errUnknownOperation = &unknownOperationError{}

type unknownOperationError struct{}

func (e *unknownOperationError) Error() string { return "queryengine: unknown operation kind" }
