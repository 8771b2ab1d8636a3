package router

import (
	"net/http"

	"todo-app-backend/internal/api"
	"todo-app-backend/internal/api/endpoints"
)

func UtilsRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		utilsEndpoints := endpoints.NewUtilsEndpoints()
		mux.HandleFunc(prefix+"/health", s.MakeHTTPHandleFunc(utilsEndpoints.Health))
	}
}

// All registers every API route under prefix.
func All(prefix string) []api.RouteRegistrar {
	return []api.RouteRegistrar{
		AuthRoutes(prefix),
		ListRoutes(prefix),
		TodoRoutes(prefix),
		ShareRoutes(prefix),
		UtilsRoutes(prefix),
	}
}
