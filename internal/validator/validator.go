// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	slugRegex  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	colorRegex = regexp.MustCompile(`^(#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})|[a-z]+(-[0-9]{2,3})?)$`)
)

// Register registers all custom validators with the Gin binding engine.
// Decimal fields are exposed to the numeric tags (gt, gte, lte) as float64.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		_ = v.RegisterValidation("slug", validateSlug)
		_ = v.RegisterValidation("color", validateColor)
		_ = v.RegisterValidation("wallet_type", validateWalletType)
		_ = v.RegisterValidation("record_type", validateRecordType)
		_ = v.RegisterValidation("budget_period", validateBudgetPeriod)
		_ = v.RegisterValidation("adjust_action", validateAdjustAction)
	}
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

func validateSlug(fl validator.FieldLevel) bool {
	return slugRegex.MatchString(fl.Field().String())
}

// validateColor accepts hex colors and palette tokens such as "emerald" or
// "sky-500".
func validateColor(fl validator.FieldLevel) bool {
	return colorRegex.MatchString(fl.Field().String())
}

func validateWalletType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "bank", "e-wallet", "cash":
		return true
	}
	return false
}

func validateRecordType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "expense":
		return true
	}
	return false
}

func validateBudgetPeriod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "weekly", "monthly", "yearly":
		return true
	}
	return false
}

func validateAdjustAction(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "increase", "decrease":
		return true
	}
	return false
}
