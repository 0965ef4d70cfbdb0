package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/marmos91/dittorepo/internal/logger"
	"github.com/marmos91/dittorepo/pkg/repository"
)

const (
	MsgCreateError = "Error registering repository."
	MsgUpdateError = "Error updating repository."
	MsgDeleteError = "Error deleting repository."
	MsgListError   = "Error retrieving repositories."
)

// Multipart field names of POST and PUT /repository.
const (
	fieldData   = "data"
	fieldFiles  = "files"
	fieldName   = "name"
	fieldUserID = "userId"
)

// maxFieldBytes bounds a non-file multipart field.
const maxFieldBytes = 64 << 10

// repositoryRequest identifies a repository in request bodies.
type repositoryRequest struct {
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

// listRepositories handles GET /repository/{userId}.
func (h *handler) listRepositories(w http.ResponseWriter, r *http.Request) {
	result := h.deps.Manager.List(r.Context(), r.PathValue("userId"))
	writeResult(w, result, http.StatusOK, http.StatusInternalServerError)
}

// createRepository handles POST /repository. The body is multipart with the
// JSON field "data" = {name, userId} and the files under "files".
func (h *handler) createRepository(w http.ResponseWriter, r *http.Request) {
	req, files, err := h.readUpload(w, r, false)
	if err != nil {
		logger.Debug("Create repository: malformed request: %v", err)
		writeEnvelope(w, http.StatusBadRequest, failure(MsgCreateError))
		return
	}

	result := h.deps.Manager.Create(r.Context(), req.UserID, req.Name, files)
	writeResult(w, result, http.StatusCreated, http.StatusBadRequest)
}

// updateRepository handles PUT /repository. It accepts the same body as
// POST, and also plain "name" and "userId" fields instead of "data".
func (h *handler) updateRepository(w http.ResponseWriter, r *http.Request) {
	req, files, err := h.readUpload(w, r, true)
	if err != nil {
		logger.Debug("Update repository: malformed request: %v", err)
		writeEnvelope(w, http.StatusBadRequest, failure(MsgUpdateError))
		return
	}

	result := h.deps.Manager.Update(r.Context(), req.UserID, req.Name, files)
	writeResult(w, result, http.StatusCreated, http.StatusBadRequest)
}

// deleteRepository handles DELETE /repository with a JSON body
// {name, userId}. An empty body is an empty request.
func (h *handler) deleteRepository(w http.ResponseWriter, r *http.Request) {
	var req repositoryRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFieldBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		logger.Debug("Delete repository: malformed body: %v", err)
		writeEnvelope(w, http.StatusInternalServerError, failure(MsgDeleteError))
		return
	}

	result := h.deps.Manager.Delete(r.Context(), req.UserID, req.Name)
	writeResult(w, result, http.StatusOK, http.StatusInternalServerError)
}

// readUpload streams a multipart body into a request and its files.
//
// File names are taken verbatim from the Content-Disposition header, so a
// name such as "docs/readme.md" keeps its folders. The whole body is bounded
// by MaxUploadBytes.
func (h *handler) readUpload(w http.ResponseWriter, r *http.Request, plainFields bool) (repositoryRequest, []repository.File, error) {
	var (
		req     repositoryRequest
		files   []repository.File
		sawData bool
		plain   = make(map[string]string)
	)

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	reader, err := r.MultipartReader()
	if err != nil {
		return req, nil, err
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return req, nil, err
		}

		field := part.FormName()
		switch {
		case field == fieldFiles:
			data, err := io.ReadAll(part)
			if err != nil {
				return req, nil, fmt.Errorf("reading file part: %w", err)
			}
			files = append(files, repository.File{Name: rawFileName(part.Header.Get("Content-Disposition")), Data: data})

		case field == fieldData:
			if err := json.NewDecoder(io.LimitReader(part, maxFieldBytes)).Decode(&req); err != nil {
				return req, nil, fmt.Errorf("decoding %q field: %w", fieldData, err)
			}
			sawData = true

		case plainFields && (field == fieldName || field == fieldUserID):
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				return req, nil, err
			}
			plain[field] = string(value)
		}
		_ = part.Close()
	}

	if !plainFields && !sawData {
		return req, nil, fmt.Errorf("missing %q field", fieldData)
	}
	if req.Name == "" {
		req.Name = plain[fieldName]
	}
	if req.UserID == "" {
		req.UserID = plain[fieldUserID]
	}
	return req, files, nil
}

// rawFileName extracts the filename parameter of a Content-Disposition
// header without stripping directories.
func rawFileName(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
