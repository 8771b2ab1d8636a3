package endpoints

import (
	"net/http"

	"todo-app-backend/internal/dto"
	"todo-app-backend/internal/service/todolist"
)

type ShareEndpoints interface {
	ShareList(http.ResponseWriter, *http.Request) error
	UpdatePermissions(http.ResponseWriter, *http.Request) error
}

type shareEndpoints struct {
	service *todolist.Service
}

func NewShareEndpoints(service *todolist.Service) ShareEndpoints {
	return &shareEndpoints{service: service}
}

func (h *shareEndpoints) ShareList(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleShareList,
	})
}

func (h *shareEndpoints) UpdatePermissions(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleUpdatePermissions,
	})
}

func (h *shareEndpoints) handleShareList(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityFrom(r)
	if err != nil {
		return err
	}

	var req dto.ShareListRequest
	if err := decodeJSON(r, &req, "share list"); err != nil {
		return err
	}

	share, err := h.service.ShareList(r.Context(), identity, todolist.ShareParams{
		ListID:      req.ListID,
		TargetEmail: req.TargetEmail,
		Permission:  req.Permission,
	})
	if err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.ShareListResponse{
		Message:         "List shared successfully",
		SharedWithEmail: share.Email,
		SharedWithID:    share.UserID,
	})
}

func (h *shareEndpoints) handleUpdatePermissions(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityFrom(r)
	if err != nil {
		return err
	}

	var req dto.UpdatePermissionsRequest
	if err := decodeJSON(r, &req, "update permissions"); err != nil {
		return err
	}

	updates := make([]todolist.PermissionUpdate, 0, len(req.Updates))
	for _, u := range req.Updates {
		updates = append(updates, todolist.PermissionUpdate{Email: u.Email, Permission: u.Permission})
	}
	if req.Updates == nil {
		updates = nil
	}

	if _, err := h.service.UpdatePermissions(r.Context(), identity, req.ListID, updates); err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Permissions updated successfully"})
}
