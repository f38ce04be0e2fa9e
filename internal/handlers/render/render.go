package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	ValidationErrorType = "validation_failed"
	DecodingErrorType   = "decoding_failed"
	ServiceErrorType    = "service_error"
)

// NonFieldErrors is the key for validation errors not bound to a single field
const NonFieldErrors = "non_field_errors"

var validate = validator.New()

func init() {
	if err := configureValidator(validate); err != nil {
		panic(err)
	}
}

type Struct any

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	JSONWithStatus(w, data, http.StatusOK)
}

func Created(w http.ResponseWriter, data any) {
	JSONWithStatus(w, data, http.StatusCreated)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Render ServiceError
func ServiceError(w http.ResponseWriter, error string, code int) {
	response := ErrorResponse{
		Error:   ServiceErrorType,
		Message: error,
	}

	JSONWithStatus(w, response, code)
}

// Render json DecodeError
func DecodeError(w http.ResponseWriter, err error) {
	response := ErrorResponse{
		Error:   DecodingErrorType,
		Message: "",
	}

	// Try to provide more specific error message based on error type
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		response.Message = fmt.Sprintf("Invalid data type for field '%s'", typeErr.Field)
	case errors.Is(err, io.EOF):
		response.Message = "Request body is empty"
	default:
		response.Message = "Request body is not valid JSON"
	}

	JSONWithStatus(w, response, http.StatusBadRequest)
}

// Render ValidationErrors
func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	fields := make(map[string]string, len(errs))

	// Create user-friendly error messages based on validation tag
	for _, fieldError := range errs {
		var message string
		switch fieldError.Tag() {
		case "required", "notblank":
			message = "This field is required"
		case "min":
			message = fmt.Sprintf("Value is too short (minimum %s)", fieldError.Param())
		case "max":
			message = fmt.Sprintf("Value is too long (maximum %s)", fieldError.Param())
		case "email":
			message = "Enter a valid email address"
		case "eqfield":
			message = fmt.Sprintf("Must match '%s' field", fieldError.Param())
		case "oneof":
			message = fmt.Sprintf("Must be one of: %s", strings.Join(strings.Fields(fieldError.Param()), ", "))
		case "username":
			message = "Only letters, digits and @/./+/-/_ characters are allowed"
		default:
			message = "Invalid value"
		}

		fields[fieldError.Field()] = message
	}

	FieldErrors(w, fields)
}

// FieldErrors renders validation failure detected outside of struct tags (by services, for example)
func FieldErrors(w http.ResponseWriter, fields map[string]string) {
	response := ErrorResponse{
		Error:   ValidationErrorType,
		Message: "Request validation failed",
		Fields:  fields,
	}

	JSONWithStatus(w, response, http.StatusBadRequest)
}

// BindAndValidate decodes JSON request body into type T and validates it using struct tags.
// Returns the decoded value and writes appropriate error responses for decoding or validation failures.
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	return bind[T](w, r, false)
}

// BindOptional works like BindAndValidate but treats empty body as zero T
func BindOptional[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	return bind[T](w, r, true)
}

func bind[T Struct](w http.ResponseWriter, r *http.Request, allowEmpty bool) (T, error) {
	var value T

	err := json.NewDecoder(r.Body).Decode(&value)
	switch {
	case err == nil:
	case allowEmpty && errors.Is(err, io.EOF):
	default:
		DecodeError(w, err)
		return value, err
	}

	err = validate.Struct(value)
	if err != nil {
		// pretty sure cast will be ok cause expecting T is valid struct
		errs := err.(validator.ValidationErrors)
		ValidationErrors(w, errs)
		return value, err
	}

	return value, nil
}

// JSONWithStatus sends data as json and enforces status code
func JSONWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
