package http

import (
	"encoding/json"
	stdhttp "net/http"

	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
)

// JSON writes v as application/json with the given status
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON shape of a failed ops request
type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// RespondError writes err with a status derived from its code
func RespondError(w stdhttp.ResponseWriter, err error) {
	code := perr.CodeOf(err)
	JSON(w, statusOf(code), errorBody{Code: code.String(), Error: err.Error()})
}

func statusOf(c perr.ErrorCode) int {
	switch c {
	case perr.ErrorCodeNotFound:
		return stdhttp.StatusNotFound
	case perr.ErrorCodeInvalidArgument, perr.ErrorCodeValidation:
		return stdhttp.StatusBadRequest
	case perr.ErrorCodeUnavailable, perr.ErrorCodeDB:
		return stdhttp.StatusServiceUnavailable
	default:
		return stdhttp.StatusInternalServerError
	}
}
