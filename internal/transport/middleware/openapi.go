package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/transport"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// OpenAPIValidator checks requests against the API document before they
// reach a handler. Only JSON bodies are validated; multipart uploads are
// streamed straight through.
type OpenAPIValidator struct {
	router   routers.Router
	basePath string
	base     *transport.BaseHandler
}

// NewOpenAPIValidator loads the document at path. Paths in the document are
// relative to basePath.
func NewOpenAPIValidator(path, basePath string, logger *slog.Logger) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return newOpenAPIValidator(doc, basePath, logger)
}

// NewOpenAPIValidatorFromData is NewOpenAPIValidator for an in-memory document.
func NewOpenAPIValidatorFromData(data []byte, basePath string, logger *slog.Logger) (*OpenAPIValidator, error) {
	doc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return nil, err
	}
	return newOpenAPIValidator(doc, basePath, logger)
}

func newOpenAPIValidator(doc *openapi3.T, basePath string, logger *slog.Logger) (*OpenAPIValidator, error) {
	// matching is done on the path with basePath trimmed
	doc.Servers = nil
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, err
	}
	return &OpenAPIValidator{
		router:   router,
		basePath: strings.TrimSuffix(basePath, "/"),
		base:     transport.NewBaseHandler(logger),
	}, nil
}

func (v *OpenAPIValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, params, found := v.findRoute(r)
		if !found {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
			Options: &openapi3filter.Options{
				ExcludeRequestBody: !isJSON(r.Header.Get("Content-Type")),
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			v.base.WriteAppError(w, validationError(err))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (v *OpenAPIValidator) findRoute(r *http.Request) (*routers.Route, map[string]string, bool) {
	if !strings.HasPrefix(r.URL.Path, v.basePath) {
		return nil, nil, false
	}

	original := r.URL.Path
	r.URL.Path = strings.TrimPrefix(original, v.basePath)
	if r.URL.Path == "" {
		r.URL.Path = "/"
	}
	route, params, err := v.router.FindRoute(r)
	r.URL.Path = original

	if err != nil {
		return nil, nil, false
	}
	return route, params, true
}

func validationError(err error) *internal.AppError {
	message := err.Error()

	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		message = reqErr.Error()
		var schemaErr *openapi3.SchemaError
		if errors.As(reqErr.Err, &schemaErr) {
			field := strings.Join(schemaErr.JSONPointer(), ".")
			if field == "" && reqErr.Parameter != nil {
				field = reqErr.Parameter.Name
			}
			return internal.NewValidationFieldError(field, schemaErr.Reason, internal.ErrCodeValidationFailed)
		}
		if reqErr.Parameter != nil {
			return internal.NewValidationFieldError(reqErr.Parameter.Name, reqErr.Error(), internal.ErrCodeValidationFailed)
		}
	}
	return internal.NewValidationError(message, internal.ErrCodeValidationFailed).WithCause(err)
}
