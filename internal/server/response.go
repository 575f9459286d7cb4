package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/tartampluch/remindme/internal/account"
	"github.com/tartampluch/remindme/internal/app"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
)

// APIError is the error half of the response envelope.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// envelope wraps every JSON body as {"data": ...} or {"error": ...}.
type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err)
	}
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

func created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, envelope{Data: data})
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// fail renders err through the error mapping. Unexpected errors are logged
// and hidden behind a generic message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apiError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), config.MsgHandlerError,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyMethod, r.Method,
			config.LogKeyPath, r.URL.Path,
			config.LogKeyError, err)
	}
	writeJSON(w, apiErr.StatusCode, envelope{Error: apiErr})
}

// apiError maps domain errors to HTTP statuses.
func apiError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return &APIError{
			Code:       config.CodeValidation,
			Message:    ve.Message,
			StatusCode: http.StatusBadRequest,
			Details:    map[string]string{ve.Field: ve.Message},
		}
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
		return &APIError{
			Code:       config.CodeValidation,
			Message:    config.ErrValidation,
			StatusCode: http.StatusBadRequest,
			Details:    details,
		}
	}

	switch {
	case errors.Is(err, model.ErrValidation):
		return &APIError{Code: config.CodeValidation, Message: err.Error(), StatusCode: http.StatusBadRequest}
	case errors.Is(err, account.ErrDuplicateAccount):
		return &APIError{Code: config.CodeDuplicateAccount, Message: config.ErrDuplicateAccount, StatusCode: http.StatusConflict}
	case errors.Is(err, account.ErrUnknownAccount):
		return &APIError{Code: config.CodeUnknownAccount, Message: config.ErrUnknownAccount, StatusCode: http.StatusNotFound}
	case errors.Is(err, account.ErrInvalidCredential):
		return &APIError{Code: config.CodeInvalidCredential, Message: config.ErrInvalidCredential, StatusCode: http.StatusUnauthorized}
	case errors.Is(err, app.ErrNoSession):
		return &APIError{Code: config.CodeUnauthorized, Message: config.HTTPMsgUnauthorized, StatusCode: http.StatusUnauthorized}
	case errors.Is(err, app.ErrNotFound):
		return &APIError{Code: config.CodeNotFound, Message: config.HTTPMsgNotFound, StatusCode: http.StatusNotFound}
	}
	return &APIError{Code: config.CodeInternal, Message: config.HTTPMsgInternalErr, StatusCode: http.StatusInternalServerError}
}

func badRequest(message string) *APIError {
	return &APIError{Code: config.CodeBadRequest, Message: message, StatusCode: http.StatusBadRequest}
}

// decode reads a size-limited JSON body into dst and validates its tags.
func (s *Server) decode(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, config.MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			return ve
		}
		return badRequest(config.ErrDecodeBody)
	}
	return s.validate.Struct(dst)
}
