package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// devOrigins are the local dashboard dev servers allowed outside production
var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// CORS lets the browser dashboard call the API with credentials from the
// configured origins. Outside production the local dev servers are allowed
// as well.
func CORS(origins []string, environment string) func(http.Handler) http.Handler {
	allowed := slices.Clone(origins)
	if environment != "production" {
		for _, o := range devOrigins {
			if !slices.Contains(allowed, o) {
				allowed = append(allowed, o)
			}
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
