package dto

// Todo is the JSON shape of a task as returned by the API and carried by
// the todo-added and todo-updated relay events.
type Todo struct {
	ID        string `json:"_id"`
	Type      bool   `json:"type"`
	TaskName  string `json:"taskName"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	Priority  string `json:"priority"`
	ListID    string `json:"listId"`
	UserID    string `json:"userId"`
}

// List is the JSON shape of a todo list, carried by list-updated events.
type List struct {
	ID                 string       `json:"_id"`
	Name               string       `json:"name"`
	CreatedAt          string       `json:"createdAt"`
	UserID             string       `json:"userId"`
	TaskCount          int          `json:"taskCount"`
	CompletedTaskCount int          `json:"completedTaskCount"`
	SharedWith         []SharedUser `json:"sharedWith"`
}

type SharedUser struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

// TodoDeleted is the payload of a todo-deleted event.
type TodoDeleted struct {
	TodoID string `json:"todoId"`
	ListID string `json:"listId"`
}

type CreateListRequest struct {
	Name string `json:"name"`
}

type DeleteListRequest struct {
	ID string `json:"id"`
}

type CreateTodoRequest struct {
	TaskName string `json:"taskName"`
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`
}

type UpdateTodoRequest struct {
	TodoID   string  `json:"todoId"`
	ListID   string  `json:"listId"`
	Type     *bool   `json:"type,omitempty"`
	TaskName *string `json:"taskName,omitempty"`
	Status   *string `json:"status,omitempty"`
	Priority *string `json:"priority,omitempty"`
}

type DeleteTodoRequest struct {
	TodoID string `json:"todoId"`
	ListID string `json:"listId"`
}

type ShareListRequest struct {
	ListID      string `json:"listId"`
	TargetEmail string `json:"targetEmail"`
	Permission  string `json:"permission,omitempty"`
}

type ShareListResponse struct {
	Message         string `json:"message"`
	SharedWithEmail string `json:"sharedWithEmail"`
	SharedWithID    string `json:"sharedWithId"`
}

type PermissionUpdate struct {
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

type UpdatePermissionsRequest struct {
	ListID  string             `json:"listId"`
	Updates []PermissionUpdate `json:"updates"`
}
