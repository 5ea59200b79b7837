package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS разрешает браузерному клиенту запросы с cookie с перечисленных origin'ов.
// Preflight отвечает 204.
func CORS(origins []string) Middleware {
	return cors.Handler(cors.Options{
		AllowedOrigins:       origins,
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:       []string{"Content-Type", "Authorization", "X-Requested-With", "Accept"},
		ExposedHeaders:       []string{HeaderRequestID},
		AllowCredentials:     true,
		MaxAge:               300,
		OptionsSuccessStatus: http.StatusNoContent,
	})
}
