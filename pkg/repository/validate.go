package repository

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/marmos91/dittorepo/pkg/objectstore"
)

// disallowedChars are the characters rejected in repository and file names.
// The set is kept exactly as stored data was written with it.
const disallowedChars = "áéíóúÁÉÍÓÚñÑ"

// unsafeUserIDChars matches everything a user ID may not contain once it is
// used as a key segment.
var unsafeUserIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// ValidName reports whether name is free of disallowed characters.
func ValidName(name string) bool {
	return !strings.ContainsAny(name, disallowedChars)
}

// SanitizeUserID strips every character outside [a-zA-Z0-9_-].
func SanitizeUserID(userID string) string {
	return unsafeUserIDChars.ReplaceAllString(userID, "")
}

// validateUserID rejects empty IDs and IDs that would change under
// SanitizeUserID, so writes land where List looks for them.
func validateUserID(userID string) error {
	if userID == "" {
		return &ValidationError{Message: MsgNoUserID}
	}
	if SanitizeUserID(userID) != userID {
		return &ValidationError{Message: MsgInvalidUserID}
	}
	return nil
}

// validateRepositoryName checks the disallowed characters, then that the name
// is a single key segment.
func validateRepositoryName(name string) error {
	if !ValidName(name) {
		return &ValidationError{Message: MsgInvalidName}
	}
	if name == "" || name == "." || name == ".." || strings.Contains(name, objectstore.Delimiter) {
		return &ValidationError{Message: MsgInvalidRepoPath}
	}
	return nil
}

// validateFiles checks the batch is non-empty and every file name is usable.
// Names may contain "/" to address nested folders.
func validateFiles(files []File) error {
	if len(files) == 0 {
		return &ValidationError{Message: MsgNoFiles}
	}

	for _, f := range files {
		if !ValidName(f.Name) {
			return &ValidationError{Message: fmt.Sprintf(msgInvalidFileName, f.Name)}
		}
		if objectstore.ValidateKey(f.Name) != nil {
			return &ValidationError{Message: fmt.Sprintf(msgInvalidFilePath, f.Name)}
		}
	}
	return nil
}
