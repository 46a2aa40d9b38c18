package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"funnel-billing/internal/domain/billing"
	"funnel-billing/internal/domain/model"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// newEventValidator builds the schema validator for ChargeEvent. Field names in errors
// follow the JSON payload, not the Go struct.
func newEventValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("plan_type", func(fl validator.FieldLevel) bool {
		p, ok := model.ParsePlanType(fl.Field().String())
		return ok && p != model.PlanFree
	})
	_ = v.RegisterValidation("addon_type", func(fl validator.FieldLevel) bool {
		_, ok := model.ParseAddonType(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("frequency", func(fl validator.FieldLevel) bool {
		_, err := billing.ParseFrequency(fl.Field().String())
		return err == nil
	})
	return v
}

// describeValidation turns validator output into a single human-readable reason.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "payload does not match event schema: " + err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		tag := fe.Tag()
		if fe.Param() != "" {
			tag += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("field '%s' failed '%s'", field, tag))
	}
	return "invalid event: " + strings.Join(parts, "; ")
}
