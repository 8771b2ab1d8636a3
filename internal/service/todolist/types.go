package todolist

import (
	"todo-app-backend/internal/model"
	"todo-app-backend/internal/service/auth"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeForbidden  ErrorCode = "forbidden"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeInternal   ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type Identity = auth.Identity

const (
	maxListNameLength = 100
	maxTaskNameLength = 500
)

// ListResult is a list together with its collaborators.
type ListResult struct {
	List   model.ListItem
	Shares []model.ShareItem
}

// TodoResult carries the list as it stands after a todo mutation so callers
// can publish the new counters.
type TodoResult struct {
	Todo model.TodoItem
	List model.ListItem
}

type CreateTodoParams struct {
	ListID   string
	TaskName string
	Priority string
	Status   string
}

// UpdateTodoParams leaves a field unchanged when it is nil.
type UpdateTodoParams struct {
	TodoID   string
	ListID   string
	TaskName *string
	Status   *string
	Priority *string
	Type     *bool
}

type ShareParams struct {
	ListID      string
	TargetEmail string
	Permission  string
}

type PermissionUpdate struct {
	Email      string
	Permission string
}

// access describes what the caller may do with one list.
type access struct {
	list  model.ListItem
	owner bool
	share model.ShareItem
}

func (a access) canEdit() bool {
	return a.owner || a.share.Permission.CanEdit()
}
