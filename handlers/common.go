package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"stationdesk/middleware"
	"stationdesk/models"
	"stationdesk/remote"
	"stationdesk/store"
)

var validate = validator.New()

// Clock returns the current time in the dashboard's timezone.
type Clock func() time.Time

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v and runs its validate tags.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	}
	return "Invalid request: " + strings.Join(parts, "; ")
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func viewer(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
	}
	return user, ok
}

// backendError maps a store or backend error onto a response.
func backendError(w http.ResponseWriter, what string, err error) {
	var rejected *remote.Error
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, store.ErrExists):
		writeError(w, what+" already exists", http.StatusConflict)
	case errors.As(err, &rejected):
		log.Printf("❌ Backend rejected %s: %v", what, err)
		msg := rejected.Msg
		if msg == "" {
			msg = "Rejected by backend"
		}
		writeError(w, msg, http.StatusBadGateway)
	default:
		log.Printf("❌ Backend failure on %s: %v", what, err)
		writeError(w, "Backend unavailable", http.StatusBadGateway)
	}
}
