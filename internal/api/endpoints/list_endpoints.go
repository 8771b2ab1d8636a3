package endpoints

import (
	"net/http"

	"todo-app-backend/internal/dto"
	"todo-app-backend/internal/service/todolist"
)

type ListEndpoints interface {
	Lists(http.ResponseWriter, *http.Request) error
	DeleteList(http.ResponseWriter, *http.Request) error
	ListTodos(http.ResponseWriter, *http.Request) error
}

type listEndpoints struct {
	service *todolist.Service
}

func NewListEndpoints(service *todolist.Service) ListEndpoints {
	return &listEndpoints{service: service}
}

func (h *listEndpoints) Lists(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleGetLists,
		http.MethodPost: h.handleCreateList,
	})
}

func (h *listEndpoints) DeleteList(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleDeleteList,
	})
}

// ListTodos serves /lists/{id}/todos.
func (h *listEndpoints) ListTodos(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleGetTodos,
		http.MethodPost: h.handleCreateTodo,
	})
}

func (h *listEndpoints) handleGetLists(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityFrom(r)
	if err != nil {
		return err
	}

	results, err := h.service.Lists(r.Context(), identity)
	if err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toListDTOs(results))
}

func (h *listEndpoints) handleCreateList(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityFrom(r)
	if err != nil {
		return err
	}

	var req dto.CreateListRequest
	if err := decodeJSON(r, &req, "create list"); err != nil {
		return err
	}

	result, err := h.service.CreateList(r.Context(), identity, req.Name)
	if err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, toListDTO(result.List, result.Shares))
}

func (h *listEndpoints) handleDeleteList(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityFrom(r)
	if err != nil {
		return err
	}

	var req dto.DeleteListRequest
	if err := decodeJSON(r, &req, "delete list"); err != nil {
		return err
	}

	if err := h.service.DeleteList(r.Context(), identity, req.ID); err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "List and all associated todos deleted successfully"})
}

func (h *listEndpoints) handleGetTodos(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityFrom(r)
	if err != nil {
		return err
	}

	todos, err := h.service.Todos(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toTodoDTOs(todos))
}

func (h *listEndpoints) handleCreateTodo(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityFrom(r)
	if err != nil {
		return err
	}

	var req dto.CreateTodoRequest
	if err := decodeJSON(r, &req, "create todo"); err != nil {
		return err
	}

	result, err := h.service.CreateTodo(r.Context(), identity, todolist.CreateTodoParams{
		ListID:   r.PathValue("id"),
		TaskName: req.TaskName,
		Priority: req.Priority,
		Status:   req.Status,
	})
	if err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, toTodoDTO(result.Todo))
}
