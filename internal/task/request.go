package task

import (
	"net/http"

	"github.com/kazz187/taskflow/pkg/cerr"
)

type createTaskRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	IsAIEnhanced *bool   `json:"isAiEnhanced"`
}

type updateTaskStatusRequest struct {
	Status *string `json:"status"`
}

// parseCreateRequest turns a POST /tasks body into CreateParams. Any status
// the caller sends is ignored since new tasks always start Pending.
func parseCreateRequest(w http.ResponseWriter, r *http.Request) (CreateParams, error) {
	var req createTaskRequest
	if err := cerr.DecodeJSONBody(w, r, &req); err != nil {
		return CreateParams{}, err
	}
	var p CreateParams
	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.IsAIEnhanced != nil {
		p.IsAIEnhanced = *req.IsAIEnhanced
	}
	if err := p.Validate(); err != nil {
		return CreateParams{}, err
	}
	return p, nil
}

func parseUpdateStatusRequest(w http.ResponseWriter, r *http.Request) (Status, error) {
	var req updateTaskStatusRequest
	if err := cerr.DecodeJSONBody(w, r, &req); err != nil {
		return "", err
	}
	if req.Status == nil {
		return "", cerr.NewError(cerr.InvalidArgument, "status is required", nil)
	}
	return ParseStatus(*req.Status)
}
