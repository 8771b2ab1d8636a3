package endpoints

import (
	"net/http"

	"todo-app-backend/internal/dto"
	"todo-app-backend/internal/service/todolist"
)

type TodoEndpoints interface {
	UpdateTodo(http.ResponseWriter, *http.Request) error
	DeleteTodo(http.ResponseWriter, *http.Request) error
}

type todoEndpoints struct {
	service *todolist.Service
}

func NewTodoEndpoints(service *todolist.Service) TodoEndpoints {
	return &todoEndpoints{service: service}
}

func (h *todoEndpoints) UpdateTodo(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleUpdateTodo,
	})
}

func (h *todoEndpoints) DeleteTodo(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleDeleteTodo,
	})
}

func (h *todoEndpoints) handleUpdateTodo(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityFrom(r)
	if err != nil {
		return err
	}

	var req dto.UpdateTodoRequest
	if err := decodeJSON(r, &req, "update todo"); err != nil {
		return err
	}

	result, err := h.service.UpdateTodo(r.Context(), identity, todolist.UpdateTodoParams{
		TodoID:   req.TodoID,
		ListID:   req.ListID,
		TaskName: req.TaskName,
		Status:   req.Status,
		Priority: req.Priority,
		Type:     req.Type,
	})
	if err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toTodoDTO(result.Todo))
}

func (h *todoEndpoints) handleDeleteTodo(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityFrom(r)
	if err != nil {
		return err
	}

	var req dto.DeleteTodoRequest
	if err := decodeJSON(r, &req, "delete todo"); err != nil {
		return err
	}

	if _, err := h.service.DeleteTodo(r.Context(), identity, req.ListID, req.TodoID); err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Todo deleted successfully"})
}
