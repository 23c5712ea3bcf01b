package importer

import "fmt"

// ClassificationError reports a node whose operation name matched a wrapper
// variant but whose structure failed the variant's preconditions. It is a
// local, recoverable condition: the pipeline skips the node with a
// diagnostic and keeps going.
type ClassificationError struct {
	Op     string
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// InitializationError reports a classified node for which no usable input
// shape could be determined. It signals a structurally broken graph and
// aborts the whole conversion.
type InitializationError struct {
	Op     string
	Reason string
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}
