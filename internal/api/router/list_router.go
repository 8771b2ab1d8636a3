package router

import (
	"net/http"

	"todo-app-backend/internal/api"
	"todo-app-backend/internal/api/endpoints"
)

func ListRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		listEndpoints := endpoints.NewListEndpoints(s.Lists())
		mux.HandleFunc(prefix+"/lists", s.MakeHTTPHandleFunc(listEndpoints.Lists, s.Authenticated()))
		mux.HandleFunc(prefix+"/lists/delete", s.MakeHTTPHandleFunc(listEndpoints.DeleteList, s.Authenticated()))
		mux.HandleFunc(prefix+"/lists/{id}/todos", s.MakeHTTPHandleFunc(listEndpoints.ListTodos, s.Authenticated()))
	}
}

func TodoRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		todoEndpoints := endpoints.NewTodoEndpoints(s.Lists())
		mux.HandleFunc(prefix+"/todos/update", s.MakeHTTPHandleFunc(todoEndpoints.UpdateTodo, s.Authenticated()))
		mux.HandleFunc(prefix+"/todos/delete", s.MakeHTTPHandleFunc(todoEndpoints.DeleteTodo, s.Authenticated()))
	}
}

func ShareRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		shareEndpoints := endpoints.NewShareEndpoints(s.Lists())
		mux.HandleFunc(prefix+"/share-list", s.MakeHTTPHandleFunc(shareEndpoints.ShareList, s.Authenticated()))
		mux.HandleFunc(prefix+"/update-permissions", s.MakeHTTPHandleFunc(shareEndpoints.UpdatePermissions, s.Authenticated()))
	}
}
