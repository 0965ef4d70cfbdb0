package repository

import "fmt"

// User-visible messages.
const (
	MsgCreated         = "Repository registered successfully."
	MsgUpdated         = "Repository updated successfully."
	MsgDeleted         = "Repository deleted successfully."
	MsgListed          = "Repositories retrieved successfully."
	MsgNoRepositories  = "No repositories found."
	MsgNoUserID        = "No userId provided."
	MsgInvalidUserID   = "Invalid userId."
	MsgInvalidName     = "Repository name contains disallowed characters."
	MsgInvalidRepoPath = "Invalid repository name."
	MsgAlreadyExists   = "Repository with this name already exists."
	MsgDoesNotExist    = "Repository with this name does not exist."
	MsgNoFiles         = "No files provided."
	MsgUploadFailed    = "Failed to upload repository files."
	MsgDeleteFailed    = "Failed to delete repository files."
	MsgListFailed      = "Failed to list repository contents."
	MsgExistenceFailed = "Failed to check repository existence."
	msgInvalidFileName = "File name contains disallowed characters: %s"
	msgInvalidFilePath = "Invalid file path: %s"
)

// ValidationError reports a malformed request. Nothing was written.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError reports that the repository already exists.
type ConflictError struct {
	UserID string
	Name   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("repository %q of user %q already exists", e.Name, e.UserID)
}

// NotFoundError reports that the repository does not exist.
type NotFoundError struct {
	UserID string
	Name   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("repository %q of user %q does not exist", e.Name, e.UserID)
}

// StoreError wraps an object store failure.
//
// Message is safe to show to callers; Err carries the cause for logs.
type StoreError struct {
	Op      string
	Key     string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
