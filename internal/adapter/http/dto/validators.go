package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"collection-gateway/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	cardExpiryRe    = regexp.MustCompile(`^(0[1-9]|1[0-2])/?[0-9]{2}$`)
	accountNumberRe = regexp.MustCompile(`^[0-9]{6,}$`)
	ngPhoneRe       = regexp.MustCompile(`^(\+?234|0)[789][01][0-9]{8}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("currency", validateCurrency)
		_ = v.RegisterValidation("card_number", validateCardNumber)
		_ = v.RegisterValidation("card_expiry", validateCardExpiry)
		_ = v.RegisterValidation("account_number", validateAccountNumber)
		_ = v.RegisterValidation("ng_phone", validateNGPhone)
	}
}

// validateCurrency accepts the supported ISO codes in any case.
func validateCurrency(fl validator.FieldLevel) bool {
	_, ok := domain.ParseCurrency(fl.Field().String())
	return ok
}

// validateCardNumber accepts 12 to 19 digits, spaces and dashes ignored, with a valid Luhn checksum.
func validateCardNumber(fl validator.FieldLevel) bool {
	return LuhnValid(StripCardNumber(fl.Field().String()))
}

// validateCardExpiry accepts MM/YY and MMYY.
func validateCardExpiry(fl validator.FieldLevel) bool {
	return cardExpiryRe.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
}

func validateAccountNumber(fl validator.FieldLevel) bool {
	return accountNumberRe.MatchString(strings.TrimSpace(fl.Field().String()))
}

// validateNGPhone accepts Nigerian mobile numbers in local or +234 form.
func validateNGPhone(fl validator.FieldLevel) bool {
	phone := strings.NewReplacer(" ", "", "-", "").Replace(fl.Field().String())
	return ngPhoneRe.MatchString(phone)
}

// StripCardNumber removes spaces and dashes.
func StripCardNumber(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(number)
}

// LuhnValid reports whether digits is a 12 to 19 digit string with a valid checksum.
func LuhnValid(digits string) bool {
	if len(digits) < 12 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// SanitizeStruct trims every exported string field (including *string) of a
// struct pointer. Fields tagged sanitize:"html" are HTML-escaped as well.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		escape := rt.Field(i).Tag.Get("sanitize") == "html"
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String(), escape))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String(), escape))
			}
		}
	}
}

func sanitize(s string, escape bool) string {
	s = strings.TrimSpace(s)
	if escape {
		return html.EscapeString(s)
	}
	return s
}
