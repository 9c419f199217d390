package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"async-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var currencyRe = regexp.MustCompile(`^[A-Za-z]{3}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("ledger_operation", validateOperation)
		_ = v.RegisterValidation("currency_code", validateCurrency)
		_ = v.RegisterValidation("money_scale", validateMoneyScale)
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	}
}

// decimalValue lets field tags see a decimal.Decimal as its string form.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

// validateMoneyScale rejects amounts with more decimal places than the ledger stores.
func validateMoneyScale(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return domain.FitsAmountScale(d)
}

// validateOperation accepts the transaction type names in any case.
func validateOperation(fl validator.FieldLevel) bool {
	_, ok := domain.ParseTransactionType(normalizeOperation(fl.Field().String()))
	return ok
}

// validateCurrency accepts a three-letter code.
func validateCurrency(fl validator.FieldLevel) bool {
	return currencyRe.MatchString(strings.TrimSpace(fl.Field().String()))
}

func normalizeOperation(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
