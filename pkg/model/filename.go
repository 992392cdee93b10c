package model

import "strings"

// MaxFileNameLength bounds a single path segment (spec §7 FileNameTooLong).
const MaxFileNameLength = 255

// ValidateFileName enforces the non-empty, slash-free, bounded-length
// shape every File.Name's plaintext must have before it is encrypted
// (spec §7 Tree kinds FileNameEmpty/FileNameTooLong/FileNameContainsSlash).
func ValidateFileName(name string) *CoreError {
	if name == "" {
		return E(KindFileNameEmpty, "file name is empty")
	}
	if len(name) > MaxFileNameLength {
		return E(KindFileNameTooLong, "file name %q exceeds %d bytes", name, MaxFileNameLength)
	}
	if strings.Contains(name, "/") {
		return E(KindFileNameContainsSlash, "file name %q contains a slash", name)
	}
	return nil
}
