// Package model defines the core data types shared by every lockbook
// package: identifiers, the file record, and the stable error taxonomy
// that crosses the API boundary.
package model

import "fmt"

// Kind is the stable, machine-readable error category surfaced to callers
// of pkg/core. Internal layers (pkg/tree, pkg/sync) use narrower error
// types and are translated into a CoreError at the API boundary — see
// design note "Error enums across layers" in SPEC_FULL.md.
type Kind int

const (
	KindUnexpected Kind = iota

	// Account
	KindAccountExists
	KindAccountNonexistent
	KindUsernameTaken
	KindUsernameInvalid
	KindUsernamePublicKeyMismatch

	// Tree
	KindFileNonexistent
	KindFileNameTooLong
	KindFileNameEmpty
	KindFileNameContainsSlash
	KindPathTaken
	KindPathContainsEmptyFileName
	KindPathNonexistent
	KindRootNonexistent
	KindRootModificationInvalid

	// Permission
	KindInsufficientPermission
	KindShareNonexistent
	KindShareAlreadyExists
	KindLinkInSharedFolder
	KindLinkTargetIsOwned
	KindLinkTargetNonexistent

	// Sync
	KindServerUnreachable
	KindServerDisabled
	KindClientUpdateRequired
	KindCannotCancelSubscriptionForAppStore
	KindUsageIsOverDataCap

	// Validation (mirrors tree.ValidationFailure kinds)
	KindValidationOrphan
	KindValidationCycle
	KindValidationPathConflict
	KindValidationSharedLink
	KindValidationDeletedFileUpdated
	KindValidationHmacModificationInvalid
	KindValidationSizeModificationInvalid
)

// CoreError is the stable public error type. It always carries a Kind a
// caller can switch on plus a human string for logs/diagnostics.
type CoreError struct {
	Kind    Kind
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// E constructs a CoreError with a formatted message.
func E(kind Kind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Unexpected wraps an internal error that should never reach a user but
// must not be swallowed either — it is logged by the caller and reported
// with KindUnexpected so the UI can show a generic "something went wrong."
func Unexpected(err error) *CoreError {
	return &CoreError{Kind: KindUnexpected, Message: err.Error()}
}

func (k Kind) String() string {
	switch k {
	case KindAccountExists:
		return "AccountExists"
	case KindAccountNonexistent:
		return "AccountNonexistent"
	case KindUsernameTaken:
		return "UsernameTaken"
	case KindUsernameInvalid:
		return "UsernameInvalid"
	case KindUsernamePublicKeyMismatch:
		return "UsernamePublicKeyMismatch"
	case KindFileNonexistent:
		return "FileNonexistent"
	case KindFileNameTooLong:
		return "FileNameTooLong"
	case KindFileNameEmpty:
		return "FileNameEmpty"
	case KindFileNameContainsSlash:
		return "FileNameContainsSlash"
	case KindPathTaken:
		return "PathTaken"
	case KindPathContainsEmptyFileName:
		return "PathContainsEmptyFileName"
	case KindPathNonexistent:
		return "PathNonexistent"
	case KindRootNonexistent:
		return "RootNonexistent"
	case KindRootModificationInvalid:
		return "RootModificationInvalid"
	case KindInsufficientPermission:
		return "InsufficientPermission"
	case KindShareNonexistent:
		return "ShareNonexistent"
	case KindShareAlreadyExists:
		return "ShareAlreadyExists"
	case KindLinkInSharedFolder:
		return "LinkInSharedFolder"
	case KindLinkTargetIsOwned:
		return "LinkTargetIsOwned"
	case KindLinkTargetNonexistent:
		return "LinkTargetNonexistent"
	case KindServerUnreachable:
		return "ServerUnreachable"
	case KindServerDisabled:
		return "ServerDisabled"
	case KindClientUpdateRequired:
		return "ClientUpdateRequired"
	case KindCannotCancelSubscriptionForAppStore:
		return "CannotCancelSubscriptionForAppStore"
	case KindUsageIsOverDataCap:
		return "UsageIsOverDataCap"
	case KindValidationOrphan:
		return "Validation(Orphan)"
	case KindValidationCycle:
		return "Validation(Cycle)"
	case KindValidationPathConflict:
		return "Validation(PathConflict)"
	case KindValidationSharedLink:
		return "Validation(SharedLink)"
	case KindValidationDeletedFileUpdated:
		return "Validation(DeletedFileUpdated)"
	case KindValidationHmacModificationInvalid:
		return "Validation(HmacModificationInvalid)"
	case KindValidationSizeModificationInvalid:
		return "Validation(SizeModificationInvalid)"
	default:
		return "Unexpected"
	}
}
