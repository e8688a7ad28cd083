package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/osr-alliance/backend-crm/store"
)

const maxBodyBytes = 1 << 20

const (
	internalErrorMessage = "Internal server error"
	conflictMessage      = "Record is being modified by another request, please retry"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are already sent, so an encode error can't be reported
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, &errorResponse{Error: msg})
}

// fail maps store errors onto status codes. Anything unexpected is logged and hidden from the caller
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case store.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrConflict):
		s.logger(r).WithError(err).Warn("write conflict")
		writeError(w, http.StatusConflict, conflictMessage)
	default:
		s.logger(r).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
	}
}

// decode reads a JSON body into v; an empty body leaves v untouched
func decode(r *http.Request, w http.ResponseWriter, v interface{}) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// queryID reads the required numeric id query parameter
func queryID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// paging reads offset and limit; both must be non-negative integers when present
func paging(r *http.Request) (offset, limit int, ok bool) {
	q := r.URL.Query()

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		limit = n
	}
	return offset, limit, true
}
