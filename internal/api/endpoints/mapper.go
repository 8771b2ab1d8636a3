package endpoints

import (
	"todo-app-backend/internal/dto"
	"todo-app-backend/internal/model"
	"todo-app-backend/internal/service/todolist"
)

func toUserResponse(user model.UserItem) dto.UserResponse {
	return dto.UserResponse{
		UserID:    user.UserID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}
}

func toListDTO(list model.ListItem, shares []model.ShareItem) dto.List {
	sharedWith := make([]dto.SharedUser, 0, len(shares))
	for _, share := range shares {
		sharedWith = append(sharedWith, dto.SharedUser{
			UserID:     share.UserID,
			Email:      share.Email,
			Permission: string(share.Permission),
		})
	}

	return dto.List{
		ID:                 list.ListID,
		Name:               list.Name,
		CreatedAt:          list.CreatedAt,
		UserID:             list.OwnerID,
		TaskCount:          list.TaskCount,
		CompletedTaskCount: list.CompletedTaskCount,
		SharedWith:         sharedWith,
	}
}

func toListDTOs(results []todolist.ListResult) []dto.List {
	out := make([]dto.List, 0, len(results))
	for _, result := range results {
		out = append(out, toListDTO(result.List, result.Shares))
	}
	return out
}

func toTodoDTO(todo model.TodoItem) dto.Todo {
	return dto.Todo{
		ID:        todo.TodoID,
		Type:      todo.Type,
		TaskName:  todo.TaskName,
		Status:    string(todo.Status),
		CreatedAt: todo.CreatedAt,
		Priority:  string(todo.Priority),
		ListID:    todo.ListID,
		UserID:    todo.UserID,
	}
}

func toTodoDTOs(todos []model.TodoItem) []dto.Todo {
	out := make([]dto.Todo, 0, len(todos))
	for _, todo := range todos {
		out = append(out, toTodoDTO(todo))
	}
	return out
}
