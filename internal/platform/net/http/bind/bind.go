// Package bind decodes request bodies and validates them with
// go-playground/validator. Messages are english and name fields by
// their json tag
package bind

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type (
	FieldLevel = validator.FieldLevel
	FieldError = validator.FieldError
	// FieldErrors is the error Validator.Struct returns for failed fields
	FieldErrors = validator.ValidationErrors
	UT         = ut.Translator
)

// ValidatorSvc is the process-wide validator and its translator
type ValidatorSvc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

// shortMessages replace the stock english text for the bound tags;
// {0} is the field and {1} the tag parameter
var shortMessages = map[string]string{
	"min": "{0} must be at least {1}",
	"max": "{0} must be at most {1}",
	"gt":  "{0} must be greater than {1}",
	"gte": "{0} must be {1} or more",
}

var (
	svcOnce sync.Once
	svc     *ValidatorSvc
)

// Init builds the singleton; later calls return the same value
func Init() *ValidatorSvc {
	svcOnce.Do(func() {
		loc := en.New()
		trans, _ := ut.New(loc, loc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		_ = en_translations.RegisterDefaultTranslations(v, trans)
		for tag, text := range shortMessages {
			translate(v, trans, tag, text)
		}
		_ = v.RegisterValidation("duration", positiveDuration)
		translate(v, trans, "duration", "{0} must be a positive duration such as 1m or 30s")
		svc = &ValidatorSvc{Validator: v, Translator: trans}
	})
	return svc
}

// Get is Init under the name call sites read better with
func Get() *ValidatorSvc { return Init() }

// RegisterValidation adds a custom tag to the singleton
func RegisterValidation(tag string, fn validator.Func) error {
	return Get().Validator.RegisterValidation(tag, fn)
}

// RegisterMessage sets the english message for tag
func RegisterMessage(tag, text string) {
	s := Get()
	translate(s.Validator, s.Translator, tag, text)
}

func translate(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}

// positiveDuration accepts what ParseDuration accepts; durations reach
// the API as strings
func positiveDuration(fl validator.FieldLevel) bool {
	_, err := ParseDuration(fl.Field().String())
	return err == nil
}

// ParseDuration reads a positive duration like "30s" or " 5m ". DTOs convert
// with it so they agree with the duration tag
func ParseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, perr.Validationf("invalid duration %q", s)
	}
	if d <= 0 {
		return 0, perr.Validationf("duration %q must be positive", s)
	}
	return d, nil
}

// jsonName reports a field by its json tag, or its Go name when there is none
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// JSONOptions tunes ParseJSON; the zero value allows unknown fields
type JSONOptions struct {
	MaxBytes        int64
	DisallowUnknown bool
	AllowEmptyBody  bool
}

// DefaultJSON is what ParseJSON uses when no options are passed
var DefaultJSON = JSONOptions{MaxBytes: 1 << 20, DisallowUnknown: true}

// ParseJSON decodes one JSON value of type T from the body and validates it.
// An empty body is accepted on GET, HEAD, DELETE and OPTIONS and whenever
// AllowEmptyBody is set
func ParseJSON[T any](r *http.Request, opts ...JSONOptions) (T, error) {
	var zero T
	o := DefaultJSON
	if len(opts) > 0 {
		o = opts[0]
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			logger.C(r.Context()).Warn().Err(err).Msg("bind: close body")
		}
	}()

	var body io.Reader = r.Body
	if o.MaxBytes > 0 {
		body = io.LimitReader(body, o.MaxBytes)
	}
	br := bufio.NewReader(body)
	if _, err := br.Peek(1); err != nil {
		if o.AllowEmptyBody || emptyOK(r.Method) {
			return zero, nil
		}
		return zero, perr.JSONErrf("empty body")
	}

	dec := json.NewDecoder(br)
	if o.DisallowUnknown {
		dec.DisallowUnknownFields()
	}
	var dst T
	if err := dec.Decode(&dst); err != nil {
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		return zero, perr.JSONErrf("unexpected trailing data")
	}
	if err := Struct(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

func emptyOK(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

// Struct validates v; the first failing field becomes a Validation error
func Struct(v any) error {
	err := Get().Validator.Struct(v)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		logger.Get().Error().Err(inv).Msg("bind: validator misuse")
		return perr.JSONErrf("validation error")
	}
	field, msg := ValidationFieldAndMessage(err)
	return perr.WithField(perr.Validationf("%s", msg), field)
}

// ValidationFieldAndMessage returns the first failing field and its message
func ValidationFieldAndMessage(err error) (field, message string) {
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		return "", ""
	case errors.As(err, &verrs) && len(verrs) > 0:
		return verrs[0].Field(), verrs[0].Translate(Get().Translator)
	default:
		return "", err.Error()
	}
}
