package medaware

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidID      = errors.New("invalid record id")
	ErrUserMismatch   = errors.New("user_id does not match authenticated user")
	ErrEmptyBody      = errors.New("Request body is required")
	ErrNoChanges      = errors.New("No valid fields to update")
)

// ErrResponse renders an error as {"error": "..."} with its status code.
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	ErrorText string `json:"error"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func newErrResponse(status int, err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: status,
		ErrorText:      err.Error(),
	}
}

func ErrInvalidRequest(err error) render.Renderer {
	return newErrResponse(http.StatusBadRequest, err)
}

func ErrUnauthorized(err error) render.Renderer {
	return newErrResponse(http.StatusUnauthorized, err)
}

func ErrForbidden(err error) render.Renderer {
	return newErrResponse(http.StatusForbidden, err)
}

func ErrNotFoundWith(err error) render.Renderer {
	return newErrResponse(http.StatusNotFound, err)
}

func ErrUnknown(err error) render.Renderer {
	return newErrResponse(http.StatusInternalServerError, err)
}

func ErrUpstream(err error) render.Renderer {
	return newErrResponse(http.StatusBadGateway, err)
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, ErrorText: "Resource not found"}
