package server

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shuportal/portal/internal/validation"
)

const msgMissingField = "Missing required parameter in the JSON body"

// fieldRules are the custom validator tags, each backed by a shared rule
// whose error text becomes the field message
var fieldRules = map[string]func(string) error{
	"fullname":     validation.Name,
	"username":     validation.Username,
	"portal_email": validation.Email,
	"password":     validation.Password,
	"shu_id":       validation.ShuID,
	"isodate": func(v string) error {
		_, err := validation.Date(v)
		return err
	},
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validators
	for tag, rule := range fieldRules {
		rule := rule
		validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return rule(fl.Field().String()) == nil
		})
	}

	return validate
}

// validateRequest returns a message per invalid field, or nil
func (s *Server) validateRequest(req any) map[string]string {
	err := s.validator.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"request": err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	if fe.Tag() == "required" {
		return msgMissingField
	}
	if rule, ok := fieldRules[fe.Tag()]; ok {
		if value, isString := fe.Value().(string); isString {
			if err := rule(value); err != nil {
				return err.Error()
			}
		}
	}
	return fe.Error()
}

// sortedFields lists the keys of a field error map, for stable logging
func sortedFields(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
