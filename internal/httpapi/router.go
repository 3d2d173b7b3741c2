package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"quiz-tracker/internal/quiz"
)

type RouterOptions struct {
	AllowedOrigins []string
}

var routeMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

func NewRouter(service *quiz.Service, opts RouterOptions) http.Handler {
	api := NewAPI(service)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(logRequests)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeMethodNotAllowed(w, allowedMethods(r, req.URL.Path)...)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.Get("/users", api.HandleListUsers)
		apiRouter.Post("/users", api.HandleCreateUser)
		apiRouter.Get("/tests", api.HandleListTests)
		apiRouter.Post("/tests", api.HandleAddTests)
		apiRouter.Get("/results", api.HandleListResults)
		apiRouter.Post("/results", api.HandleRecordAnswer)
		apiRouter.Get("/sections", api.HandleListSections)
		apiRouter.Get("/db/download", api.HandleDownloadDatabase)
		apiRouter.Post("/db/upload", api.HandleUploadDatabase)
	})

	return r
}

func allowedMethods(routes chi.Routes, path string) []string {
	allowed := make([]string, 0, len(routeMethods))
	for _, method := range routeMethods {
		if routes.Match(chi.NewRouteContext(), method, path) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}
