package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/samcharles93/weightpack/pkg/compress"
)

func writeBadRequest(c *echo.Context, msg, param string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, param, "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

// writeFailure maps request and codec errors to an error envelope.
func writeFailure(c *echo.Context, err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return writeError(c, http.StatusRequestEntityTooLarge, "invalid_request_error", err.Error(), "", "body_too_large")
	case errors.Is(err, ErrInvalidRequest):
		return writeBadRequest(c, err.Error(), paramOf(err))
	case errors.Is(err, compress.ErrInvalidParameter):
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), "", "invalid_parameter")
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	b, err := io.ReadAll(r)
	if err != nil {
		return out, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, newInvalidRequest("", fmt.Sprintf("decode body: %v", err))
	}
	return out, nil
}

func decodeData(s string) ([]byte, error) {
	if s == "" {
		return nil, newInvalidRequest("data", "data is required")
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, newInvalidRequest("data", fmt.Sprintf("data is not valid base64: %v", err))
	}
	return b, nil
}

func newCompressionID() string {
	return "cmp_" + uuid.NewString()
}
