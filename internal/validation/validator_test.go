package validation_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "github.com/mirador-app/mirador-server/internal/errors"
	"github.com/mirador-app/mirador-server/internal/validation"
)

type TestRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Type    string `json:"type" validate:"required,oneof=scene performer studio tag group gallery image"`
	PerPage int    `json:"per_page" validate:"gte=0,lte=250"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		UserID:  "u_abc123",
		Type:    "scene",
		PerPage: 25,
	}

	err := v.Validate(req)
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	//nolint:govet // fieldalignment: Minor memory optimization not worth the complexity in test code
	tests := []struct {
		name      string
		req       TestRequest
		wantField string
	}{
		{
			name: "missing required field",
			req: TestRequest{
				UserID:  "", // Missing
				Type:    "scene",
				PerPage: 25,
			},
			wantField: "user_id",
		},
		{
			name: "unknown entity type",
			req: TestRequest{
				UserID:  "u_abc123",
				Type:    "album",
				PerPage: 25,
			},
			wantField: "type",
		},
		{
			name: "page size over cap",
			req: TestRequest{
				UserID:  "u_abc123",
				Type:    "scene",
				PerPage: 9999,
			},
			wantField: "per_page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			assert.Error(t, err)

			var domainErr *domainerrors.Error
			if assert.True(t, errors.As(err, &domainErr)) {
				assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

				details, ok := domainErr.Details.(map[string]string)
				if assert.True(t, ok, "details should be field error map") {
					assert.Contains(t, details, tt.wantField)
				}
			}
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		UserID:  "",
		Type:    "scene",
		PerPage: 25,
	}

	err := v.Validate(req)
	assert.Error(t, err)

	// Should use JSON tag name "user_id", not struct field name "UserID"
	var domainErr *domainerrors.Error
	if assert.True(t, errors.As(err, &domainErr)) {
		details, ok := domainErr.Details.(map[string]string)
		if assert.True(t, ok) {
			assert.Contains(t, details, "user_id")
			assert.NotContains(t, details, "UserID")
		}
	}
}
