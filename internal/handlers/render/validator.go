package render

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Letters, digits and @/./+/-/_ only
var usernameRegexp = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

func configureValidator(validate *validator.Validate) error {
	rules := map[string]validator.Func{
		"notblank": validators.NotBlank,
		"username": validateUsername,
	}
	for tag, fn := range rules {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q validation: %w", tag, err)
		}
	}

	validate.RegisterTagNameFunc(useJSONTagNames)
	return nil
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernameRegexp.MatchString(fl.Field().String())
}
