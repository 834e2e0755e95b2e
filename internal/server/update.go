package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/harmonyui/harmonycn/internal/errors"
	"github.com/harmonyui/harmonycn/internal/publish"
	"github.com/harmonyui/harmonycn/internal/registry"
)

// UpdateRequest is the body of POST /api/registry/update.
type UpdateRequest struct {
	Files    []publish.File  `json:"files"`
	Style    string          `json:"style"`
	Registry json.RawMessage `json:"registry"`
}

// UpdateResponse is returned when the pull request was opened.
type UpdateResponse struct {
	URL     string   `json:"url"`
	RunID   string   `json:"runId"`
	Branch  string   `json:"branch"`
	Skipped []string `json:"skipped,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.New(errors.CodeValidation).WithDetail("invalid request body").Wrap(err))
		return
	}

	files, items, err := validateUpdate(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	read := s.sourceReader(r.Context(), files)
	built, err := registry.BuildStyles(items, req.Style, read)
	if err != nil {
		s.writeError(w, err)
		return
	}
	for _, name := range built.Skipped {
		s.logger.Warn("skipping item with unreadable sources", "item", name)
	}
	files = mergeBuilt(files, built.Files)

	res, err := s.cfg.Publisher.Publish(r.Context(), files, s.cfg.Target)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateResponse{
		URL:     res.PullRequestURL,
		RunID:   res.RunID,
		Branch:  res.Branch,
		Skipped: built.Skipped,
	})
}

func validateUpdate(req UpdateRequest) ([]publish.File, []registry.Item, error) {
	if len(req.Files) == 0 {
		return nil, nil, errors.New(errors.CodeValidation).WithDetail("files must not be empty")
	}
	if req.Style == "" || strings.ContainsAny(req.Style, `/\`) || strings.Contains(req.Style, "..") {
		return nil, nil, errors.New(errors.CodeValidation).WithDetailf("invalid style %q", req.Style)
	}
	if len(req.Registry) == 0 {
		return nil, nil, errors.New(errors.CodeValidation).WithDetail("registry must not be empty")
	}
	items, err := registry.DecodeItems(req.Registry)
	if err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, errors.New(errors.CodeValidation).WithDetail("registry must not be empty")
	}
	return append([]publish.File(nil), req.Files...), items, nil
}

// mergeBuilt adds generated documents to files. A generated document
// replaces a submitted file at the same path.
func mergeBuilt(files []publish.File, built []registry.BuiltFile) []publish.File {
	index := make(map[string]int, len(files))
	for i, f := range files {
		index[f.Path] = i
	}
	for _, bf := range built {
		if i, ok := index[bf.Path]; ok {
			files[i].Content = bf.Content
			continue
		}
		index[bf.Path] = len(files)
		files = append(files, publish.File{Path: bf.Path, Content: bf.Content})
	}
	return files
}

// sourceReader resolves registry source paths from the submitted files,
// then from the base branch when a ContentReader is configured.
func (s *Server) sourceReader(ctx context.Context, files []publish.File) registry.ReadFunc {
	submitted := make(map[string]string, len(files))
	for _, f := range files {
		submitted[f.Path] = f.Content
	}
	return func(path string) (string, error) {
		if content, ok := submitted[path]; ok {
			return content, nil
		}
		if s.cfg.Content == nil {
			return "", fmt.Errorf("%s was not submitted", path)
		}
		return s.cfg.Content.GetContent(ctx, s.cfg.Target.Repo, path, s.cfg.Target.BaseBranch)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.HasCode(err, errors.CodeValidation):
		status = http.StatusBadRequest
	case errors.HasCode(err, errors.CodePublish):
		status = http.StatusBadGateway
	}

	resp := errorResponse{Message: err.Error()}
	var coded *errors.Error
	if errors.As(err, &coded) {
		resp.Code = coded.Code
	}

	s.logger.Error("update failed", "status", status, "error", err)
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
