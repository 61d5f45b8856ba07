// Package httpx holds the JSON response helpers shared by the HTTP servers.
package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ErrorResponse is the error envelope every endpoint answers with.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the error envelope.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: msg,
		Code:    status,
	})
}

// Decode reads a JSON request body into v. The body is capped at 1MB.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}

// ErrBadRequest marks client input errors.
var ErrBadRequest = errors.New("bad request")

// PositiveInt parses s as an id greater than zero.
func PositiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// IntList parses a comma-separated id list such as "1,2,3". Empty input
// yields an empty list.
func IntList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, ok := PositiveInt(p)
		if !ok {
			return nil, errors.Join(ErrBadRequest, errors.New("invalid id "+strconv.Quote(p)))
		}
		out = append(out, n)
	}
	return out, nil
}
