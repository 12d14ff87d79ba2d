package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/hawksec/hawk/internal/api/middleware"
	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
	"github.com/hawksec/hawk/internal/pkg/validator"
	"github.com/hawksec/hawk/internal/services"
	"github.com/hawksec/hawk/internal/store"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// toAppError translates the failures the services and the backend client
// report into API errors.
func toAppError(err error, fallback string) *errors.AppError {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}

	var verrs validator.Errors
	var fnErr *gateway.RemoteFunctionError
	switch {
	case stderrors.As(err, &verrs):
		return errors.ValidationError("Validation failed", []validator.ValidationError(verrs))
	case stderrors.Is(err, services.ErrChatNotConfigured):
		return errors.NotConfigured(err.Error())
	case stderrors.Is(err, store.ErrClosed), stderrors.Is(err, app.ErrClosed):
		return errors.ServiceUnavailable("Session is closing")
	case gateway.IsAuth(err):
		return errors.Wrap(err, errors.ErrCodeUnauthorized, "Authentication failed", http.StatusUnauthorized)
	case gateway.IsNetwork(err):
		return errors.BackendUnreachable(err)
	case stderrors.As(err, &fnErr):
		return errors.RemoteFunctionError(fnErr.Function, err)
	case gateway.IsNotFound(err), gateway.IsNoRows(err):
		return errors.Wrap(err, errors.ErrCodeNotFound, "Resource not found", http.StatusNotFound)
	}
	return errors.Internal(fallback, err)
}

// writeError logs server-side failures with the request logger and writes
// the error envelope
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	appErr := toAppError(err, fallback)
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), logger.NewNop()).ErrorWithErr(err, fallback)
	}
	utils.WriteError(w, appErr)
}

// decodeJSON reads a JSON body into dst
func decodeJSON(r *http.Request, dst interface{}) *errors.AppError {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return errors.BadRequest("Invalid request body")
	}
	return nil
}

// decodeAndValidate decodes a JSON body and runs the struct validator on it
func decodeAndValidate(r *http.Request, dst interface{}) *errors.AppError {
	if appErr := decodeJSON(r, dst); appErr != nil {
		return appErr
	}
	if errs := validator.Validate(dst); len(errs) > 0 {
		return errors.ValidationError("Validation failed", errs)
	}
	return nil
}

// currentSession returns the caller's session or writes a 401
func currentSession(w http.ResponseWriter, r *http.Request) (*app.Session, bool) {
	s, ok := middleware.GetSession(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("No active session"))
		return nil, false
	}
	return s, true
}
