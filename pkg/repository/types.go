package repository

import (
	"sort"

	"github.com/marmos91/dittorepo/pkg/objectstore"
)

// File is an uploaded file. Name is relative to the repository root and may
// contain "/" to place the file in a sub-folder.
type File struct {
	Name string
	Data []byte
}

// UserRef identifies the owner of a repository.
type UserRef struct {
	ID string `json:"id"`
}

// RepositoryInfo is returned by Create and Update.
type RepositoryInfo struct {
	Name string  `json:"name"`
	User UserRef `json:"user"`
}

// FileEntry is a file in a reconstructed tree.
type FileEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Folder is a node of a reconstructed tree. Files and Folders are never nil.
type Folder struct {
	Name    string      `json:"name,omitempty"`
	Files   []FileEntry `json:"files"`
	Folders []*Folder   `json:"folders"`
}

func newFolder(name string) *Folder {
	return &Folder{Name: name, Files: []FileEntry{}, Folders: []*Folder{}}
}

// Empty reports whether the folder has neither files nor sub-folders.
func (f *Folder) Empty() bool {
	return len(f.Files) == 0 && len(f.Folders) == 0
}

// Find returns the direct sub-folder called name, or nil.
func (f *Folder) Find(name string) *Folder {
	for _, sub := range f.Folders {
		if sub.Name == name {
			return sub
		}
	}
	return nil
}

// sortChildren orders files and folders by name.
func (f *Folder) sortChildren() {
	sort.Slice(f.Files, func(i, j int) bool { return f.Files[i].Name < f.Files[j].Name })
	sort.Slice(f.Folders, func(i, j int) bool { return f.Folders[i].Name < f.Folders[j].Name })
}

// userPrefix is the prefix holding every repository of userID.
func userPrefix(userID string) string {
	return objectstore.AsPrefix(objectstore.Join("users", userID, "repositories"))
}

// repositoryPrefix is the prefix holding the files of one repository.
func repositoryPrefix(userID, name string) string {
	return userPrefix(userID) + objectstore.AsPrefix(name)
}
