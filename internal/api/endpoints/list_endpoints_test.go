package endpoints

import (
	"net/http"
	"testing"

	"todo-app-backend/internal/api"
	"todo-app-backend/internal/dto"
)

func TestListAndTodoFlow(t *testing.T) {
	handler := setupHandler(t)
	owner := register(t, handler, "Owner", "owner@example.com")
	auth := bearer(owner.AccessToken)

	list := doJSONRequest[dto.List](t, handler, http.MethodPost, prefix+"/lists", dto.CreateListRequest{Name: " Groceries "}, auth, http.StatusCreated)
	if list.ID == "" || list.Name != "Groceries" || list.TaskCount != 0 || list.UserID != owner.User.UserID {
		t.Fatalf("unexpected list %#v", list)
	}
	if list.SharedWith == nil {
		t.Fatal("expected empty sharedWith array")
	}

	todosPath := prefix + "/lists/" + list.ID + "/todos"
	first := doJSONRequest[dto.Todo](t, handler, http.MethodPost, todosPath, dto.CreateTodoRequest{TaskName: "milk"}, auth, http.StatusCreated)
	if first.Priority != "Medium" || first.Status != "ToDo" || first.ListID != list.ID || first.Type {
		t.Fatalf("unexpected todo defaults %#v", first)
	}
	second := doJSONRequest[dto.Todo](t, handler, http.MethodPost, todosPath, dto.CreateTodoRequest{TaskName: "eggs", Priority: "High"}, auth, http.StatusCreated)

	todos := doJSONRequest[[]dto.Todo](t, handler, http.MethodGet, todosPath, nil, auth, http.StatusOK)
	if len(todos) != 2 || todos[0].ID != second.ID {
		t.Fatalf("expected newest first, got %#v", todos)
	}

	status := "Completed"
	updated := doJSONRequest[dto.Todo](t, handler, http.MethodPost, prefix+"/todos/update", dto.UpdateTodoRequest{
		TodoID: first.ID, ListID: list.ID, Status: &status,
	}, auth, http.StatusOK)
	if updated.Status != "Completed" || updated.TaskName != "milk" {
		t.Fatalf("unexpected update %#v", updated)
	}

	lists := doJSONRequest[[]dto.List](t, handler, http.MethodGet, prefix+"/lists", nil, auth, http.StatusOK)
	if len(lists) != 1 || lists[0].TaskCount != 2 || lists[0].CompletedTaskCount != 1 {
		t.Fatalf("unexpected counters %#v", lists)
	}

	doJSONRequest[ApiMessageResponse](t, handler, http.MethodPost, prefix+"/todos/delete", dto.DeleteTodoRequest{TodoID: second.ID, ListID: list.ID}, auth, http.StatusOK)
	doJSONRequest[api.ApiError](t, handler, http.MethodPost, prefix+"/todos/delete", dto.DeleteTodoRequest{TodoID: second.ID, ListID: list.ID}, auth, http.StatusNotFound)

	bad := "Later"
	doJSONRequest[api.ApiError](t, handler, http.MethodPost, prefix+"/todos/update", dto.UpdateTodoRequest{
		TodoID: first.ID, ListID: list.ID, Status: &bad,
	}, auth, http.StatusBadRequest)

	doJSONRequest[ApiMessageResponse](t, handler, http.MethodPost, prefix+"/lists/delete", dto.DeleteListRequest{ID: list.ID}, auth, http.StatusOK)
	doJSONRequest[api.ApiError](t, handler, http.MethodGet, todosPath, nil, auth, http.StatusNotFound)
}

func TestListValidation(t *testing.T) {
	handler := setupHandler(t)
	owner := register(t, handler, "Owner", "owner@example.com")
	auth := bearer(owner.AccessToken)

	resp := doJSONRequest[api.ApiError](t, handler, http.MethodPost, prefix+"/lists", dto.CreateListRequest{Name: "  "}, auth, http.StatusBadRequest)
	if resp.Error != "List name is required" {
		t.Fatalf("unexpected message %q", resp.Error)
	}

	doJSONRequest[api.ApiError](t, handler, http.MethodPost, prefix+"/lists/delete", dto.DeleteListRequest{}, auth, http.StatusBadRequest)
	doJSONRequest[api.ApiError](t, handler, http.MethodDelete, prefix+"/lists", nil, auth, http.StatusMethodNotAllowed)
	doJSONRequest[api.ApiError](t, handler, http.MethodGet, prefix+"/lists", nil, nil, http.StatusUnauthorized)
}

func TestSharingAndPermissions(t *testing.T) {
	handler := setupHandler(t)
	owner := register(t, handler, "Owner", "owner@example.com")
	friend := register(t, handler, "Friend", "friend@example.com")
	stranger := register(t, handler, "Stranger", "stranger@example.com")
	ownerAuth, friendAuth, strangerAuth := bearer(owner.AccessToken), bearer(friend.AccessToken), bearer(stranger.AccessToken)

	list := doJSONRequest[dto.List](t, handler, http.MethodPost, prefix+"/lists", dto.CreateListRequest{Name: "Trip"}, ownerAuth, http.StatusCreated)
	todosPath := prefix + "/lists/" + list.ID + "/todos"

	shared := doJSONRequest[dto.ShareListResponse](t, handler, http.MethodPost, prefix+"/share-list", dto.ShareListRequest{
		ListID: list.ID, TargetEmail: "friend@example.com", Permission: "View",
	}, ownerAuth, http.StatusOK)
	if shared.SharedWithID != friend.User.UserID || shared.SharedWithEmail != "friend@example.com" {
		t.Fatalf("unexpected share response %#v", shared)
	}

	doJSONRequest[api.ApiError](t, handler, http.MethodPost, prefix+"/share-list", dto.ShareListRequest{
		ListID: list.ID, TargetEmail: "friend@example.com",
	}, ownerAuth, http.StatusBadRequest)
	doJSONRequest[api.ApiError](t, handler, http.MethodPost, prefix+"/share-list", dto.ShareListRequest{
		ListID: list.ID, TargetEmail: "ghost@example.com",
	}, ownerAuth, http.StatusNotFound)

	lists := doJSONRequest[[]dto.List](t, handler, http.MethodGet, prefix+"/lists", nil, friendAuth, http.StatusOK)
	if len(lists) != 1 || lists[0].ID != list.ID {
		t.Fatalf("expected shared list visible to friend, got %#v", lists)
	}
	if len(lists[0].SharedWith) != 1 || lists[0].SharedWith[0].Permission != "View" {
		t.Fatalf("unexpected sharedWith %#v", lists[0].SharedWith)
	}

	doJSONRequest[[]dto.Todo](t, handler, http.MethodGet, todosPath, nil, friendAuth, http.StatusOK)
	doJSONRequest[api.ApiError](t, handler, http.MethodPost, todosPath, dto.CreateTodoRequest{TaskName: "pack"}, friendAuth, http.StatusForbidden)
	doJSONRequest[api.ApiError](t, handler, http.MethodGet, todosPath, nil, strangerAuth, http.StatusNotFound)
	doJSONRequest[api.ApiError](t, handler, http.MethodPost, prefix+"/lists/delete", dto.DeleteListRequest{ID: list.ID}, friendAuth, http.StatusForbidden)

	doJSONRequest[ApiMessageResponse](t, handler, http.MethodPost, prefix+"/update-permissions", dto.UpdatePermissionsRequest{
		ListID: list.ID,
		Updates: []dto.PermissionUpdate{
			{Email: "friend@example.com", Permission: "Edit"},
			{Email: "friend@example.com", Permission: "Admin"},
		},
	}, ownerAuth, http.StatusOK)

	doJSONRequest[dto.Todo](t, handler, http.MethodPost, todosPath, dto.CreateTodoRequest{TaskName: "pack"}, friendAuth, http.StatusCreated)

	doJSONRequest[api.ApiError](t, handler, http.MethodPost, prefix+"/update-permissions", map[string]string{"listId": list.ID}, ownerAuth, http.StatusBadRequest)
}
