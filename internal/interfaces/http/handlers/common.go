// Common helper functions for HTTP handlers.

package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
	dto "github.com/turtacn/COF-H2-Predictor/pkg/types/prediction"
)

// maxBodyBytes bounds JSON request bodies. Descriptor tables with a few
// hundred columns fit comfortably.
const maxBodyBytes = 1 << 20

// parseLimit extracts the limit query parameter.
func parseLimit(r *http.Request, def, max int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are
// rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case stderrors.As(err, &maxErr):
			return errors.Newf(errors.CodeInvalidParam, "request body exceeds %d bytes", maxErr.Limit)
		case stderrors.Is(err, io.EOF):
			return errors.InvalidParam("request body is empty")
		default:
			return errors.InvalidParam("invalid JSON body").WithCause(err)
		}
	}
	return nil
}

// userMessage is the part of an error a person should read.
func userMessage(err error) string {
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		if ae.Detail != "" {
			return ae.Message + ": " + ae.Detail
		}
		return ae.Message
	}
	return err.Error()
}

// errorResponse builds the error body. Errors without a code are masked.
func errorResponse(r *http.Request, err error) dto.ErrorResponse {
	code := errors.GetCode(err)
	resp := dto.ErrorResponse{
		Code:      string(code),
		Message:   userMessage(err),
		RequestID: chimw.GetReqID(r.Context()),
	}
	if code == errors.CodeUnknown || code == errors.CodeInternal {
		resp.Code = string(errors.CodeInternal)
		resp.Message = errors.DefaultMessageForCode(errors.CodeInternal)
	}
	return resp
}

// writeAppError maps application-level errors to HTTP status codes.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse(r, err)
	writeJSON(w, errors.HTTPStatusForCode(errors.ErrorCode(resp.Code)), resp)
}

//Personal.AI order the ending
