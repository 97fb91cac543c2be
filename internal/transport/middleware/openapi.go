package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/pkg/logger"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// OpenAPIValidator rejects requests that do not match the document before
// they reach a handler. Paths the document does not describe pass through.
func OpenAPIValidator(doc *openapi3.T, base *slog.Logger) (func(http.Handler) http.Handler, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, err
	}
	opts := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		MultiError:         true,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				var routeErr *routers.RouteError
				if errors.As(err, &routeErr) {
					next.ServeHTTP(w, r)
					return
				}
				logger.FromOr(r.Context(), base).Error("failed to match openapi route", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    opts,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.FromOr(r.Context(), base).Warn("request rejected by openapi validation",
					"method", r.Method,
					"path", r.URL.Path,
					"error", err)
				appErr := appErrors.NewValidationError("request does not match the API schema", appErrors.ErrCodeValidationFailed).
					WithDetails(validationDetails(err))
				status, body := appErr.ToHTTPResponse()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(body)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

func validationDetails(err error) appErrors.ValidationErrors {
	var details appErrors.ValidationErrors
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi {
			details.Errors = append(details.Errors, validationEntry(e))
		}
		return details
	}
	details.Errors = append(details.Errors, validationEntry(err))
	return details
}

func validationEntry(err error) appErrors.ValidationError {
	entry := appErrors.ValidationError{Message: err.Error(), Code: string(appErrors.ErrCodeValidationFailed)}

	var paramErr *openapi3filter.RequestError
	if errors.As(err, &paramErr) && paramErr.Parameter != nil {
		entry.Field = paramErr.Parameter.Name
		if paramErr.Reason != "" {
			entry.Message = paramErr.Reason
		}
	}
	return entry
}
