package tree

import (
	"fmt"

	"github.com/lockbook/lockbook-core/pkg/model"
)

// ValidationKind classifies a ValidationFailure (spec §4.2 "Validation").
type ValidationKind int

const (
	ValidationOrphan ValidationKind = iota
	ValidationCycle
	ValidationPathConflict
)

func (k ValidationKind) String() string {
	switch k {
	case ValidationOrphan:
		return "Orphan"
	case ValidationCycle:
		return "Cycle"
	case ValidationPathConflict:
		return "PathConflict"
	default:
		return "Unknown"
	}
}

// ValidationFailure is the typed result of a failed validate() call,
// carrying the offending ids so the merge engine can react (spec §4.2).
type ValidationFailure struct {
	Kind ValidationKind
	Ids  []model.FileId
}

func (v *ValidationFailure) Error() string {
	return fmt.Sprintf("tree validation failed: %s %v", v.Kind, v.Ids)
}

// Kind maps a ValidationFailure onto the stable model.Kind taxonomy (spec §7).
func (v *ValidationFailure) ModelKind() model.Kind {
	switch v.Kind {
	case ValidationOrphan:
		return model.KindValidationOrphan
	case ValidationCycle:
		return model.KindValidationCycle
	case ValidationPathConflict:
		return model.KindValidationPathConflict
	default:
		return model.KindUnexpected
	}
}
