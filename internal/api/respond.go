package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rohankatakam/featurekg/internal/errors"
)

var validate = validator.New()

// validateStruct runs the validate tags of s and flattens the failures into
// one readable error.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.ValidationError(strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	respondJSON(w, logger, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// statusOf maps an error onto an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.IsConnection(err):
		return http.StatusServiceUnavailable
	case errors.IsValidation(err), errors.IsParse(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err under msg and writes the mapped status.
func fail(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		attrs := []any{"error", err, "type", errors.GetType(err), "severity", int(errors.GetSeverity(err))}
		var e *errors.Error
		if stderrors.As(err, &e) {
			attrs = append(attrs, "detail", e.DetailedString())
		}
		logger.Error(msg, attrs...)
	} else {
		logger.Warn(msg, "error", err)
	}
	respondError(w, logger, status, err.Error())
}

// respondXML sends body as a download named prefix_YYYYmmdd_HHMMSS.xml.
func respondXML(w http.ResponseWriter, prefix string, body []byte) {
	name := fmt.Sprintf("%s_%s.xml", prefix, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.ParseError(err, "invalid request body")
	}
	return nil
}
