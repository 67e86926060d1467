package web

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// errInvalidQuery wraps every query validation failure.
var errInvalidQuery = errors.New("invalid query")

// previewQuery is the raw ?page=&size= of a preview request.
type previewQuery struct {
	Page string `query:"page" validate:"omitempty,numeric"`
	Size string `query:"size" validate:"omitempty,number"`
}

// previewRequest is a validated previewQuery. Zero means "not given".
type previewRequest struct {
	Page int
	Size int
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report query parameter names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// parsePreviewQuery validates the preview parameters. Page numbers are
// only required to be integers; range is handled by pagination.
func (s *Server) parsePreviewQuery(r *http.Request) (previewRequest, error) {
	q := previewQuery{
		Page: strings.TrimSpace(r.URL.Query().Get("page")),
		Size: strings.TrimSpace(r.URL.Query().Get("size")),
	}
	if err := s.validate.Struct(q); err != nil {
		return previewRequest{}, validationError(err)
	}

	var req previewRequest
	var err error
	if q.Page != "" {
		if req.Page, err = strconv.Atoi(q.Page); err != nil {
			return previewRequest{}, fmt.Errorf("%w: page: %v", errInvalidQuery, err)
		}
	}
	if q.Size != "" {
		if req.Size, err = strconv.Atoi(q.Size); err != nil {
			return previewRequest{}, fmt.Errorf("%w: size: %v", errInvalidQuery, err)
		}
		rule := fmt.Sprintf("min=1,max=%d", s.cfg.Preview.MaxPageSize)
		if err := s.validate.Var(req.Size, rule); err != nil {
			return previewRequest{}, fmt.Errorf("%w: size must be between 1 and %d", errInvalidQuery, s.cfg.Preview.MaxPageSize)
		}
	}
	return req, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", errInvalidQuery, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s must be %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", errInvalidQuery, strings.Join(parts, ", "))
}
