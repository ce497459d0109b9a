package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/identity"
)

var validate = validator.New()

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (uint, error) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", idStr)
	}
	return uint(id), nil
}

// listParams extracts the search/limit/offset query parameters. The limit
// defaults to, and is capped by, APIListLimitMax.
func listParams(r *http.Request, cfg *config.OpsdeckConfig) (search string, limit, offset int) {
	q := r.URL.Query()
	search = q.Get("search")

	limitMax := cfg.APIListLimitMax
	limit = limitMax
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > limitMax {
		limit = limitMax
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return search, limit, offset
}

// wantsCount reports whether the request asks for a count instead of rows.
func wantsCount(r *http.Request) bool {
	return r.URL.Query().Get("count") == "true"
}

// queryUint parses an optional numeric query parameter, 0 when absent or
// unparseable.
func queryUint(r *http.Request, name string) uint {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0
	}
	return uint(n)
}

// idString formats a row id for audit subjects and messages.
func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// timeRange parses the since/until query parameters as RFC3339 timestamps.
// Absent parameters come back as zero times.
func timeRange(r *http.Request) (since, until time.Time, err error) {
	q := r.URL.Query()
	if v := q.Get("since"); v != "" {
		since, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid since timestamp %q", v)
		}
	}
	if v := q.Get("until"); v != "" {
		until, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid until timestamp %q", v)
		}
	}
	return since, until, nil
}

// decodeJSON decodes the request body into dst and validates it. On failure
// the error response has already been written and false is returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer func() { _ = r.Body.Close() }()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = fe.Tag()
			}
			respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":  "validation failed",
				"fields": fields,
			})
			return false
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return false
	}

	return true
}

// requestIdentity returns the username and client IP attached by the auth
// middleware, empty strings when the request is unauthenticated.
func requestIdentity(r *http.Request) (username, clientIP string) {
	if id, ok := identity.Get(r.Context()); ok {
		return id.Username, id.ClientIP()
	}
	return "", ""
}
