package api

import (
	"errors"
	"net/http"

	"github.com/thisisjab/rulezilla/fault"
)

func (s *server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var f fault.Fault
	if errors.As(err, &f) {
		switch f.Code() {
		case fault.BadInputCode:
			if md, ok := f.Metadata().(fault.FieldErrorsMetadata); ok {
				// This is a 422 error since it's related to specific field
				s.writeError(w, r, http.StatusUnprocessableEntity, apiResponse{
					Success: false,
					Message: f.Message(),
					Metadata: map[string]any{
						"fields": md,
					},
				})
			} else {
				// This is a 400 as it's a bad request with no metadata or unknown metadata
				md := map[string]any{"context": f.Metadata()}
				if f.Original() != nil {
					md["reason"] = f.Original().Error()
				}

				s.writeError(w, r, http.StatusBadRequest, apiResponse{
					Success:  false,
					Message:  f.Message(),
					Metadata: md,
				})
			}
		case fault.NotFoundCode:
			s.writeFault(w, r, http.StatusNotFound, f, "Requested resource not found.")

		case fault.ConflictCode:
			s.writeFault(w, r, http.StatusConflict, f, "Resource already exists.")

		case fault.PermissionDeniedCode:
			s.writeFault(w, r, http.StatusForbidden, f, "Permission denied.")

		default:
			s.internalServerError(w, r, f)
		}

		return
	}

	s.internalServerError(w, r, err)
}

// writeFault writes f's message, or fallback, with its metadata as context.
func (s *server) writeFault(w http.ResponseWriter, r *http.Request, status int, f fault.Fault, fallback string) {
	res := apiResponse{Success: false, Message: f.Message()}
	if res.Message == "" {
		res.Message = fallback
	}

	if f.Metadata() != nil {
		res.Metadata = map[string]any{"context": f.Metadata()}
	}

	s.writeError(w, r, status, res)
}

func (s *server) logError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("internal server error", "method", r.Method, "path", r.RequestURI, "remote-addr", r.RemoteAddr, "error", err)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, response apiResponse) {
	s.writeJson(w, status, response, nil) //nolint:errcheck
}

func (s *server) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	s.logError(w, r, err)
	s.writeError(w, r, http.StatusInternalServerError, apiResponse{Success: false, Message: "Internal server error"})
}
