package catalog

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/WessleyAI/carviewer/pkg/fn"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the three collections of a load: every record must pass its
// struct constraints and no id may repeat inside a collection.
func Validate(cars []Car, manufacturers []Manufacturer, categories []Category) error {
	for _, c := range cars {
		if err := checkStruct("cars", c); err != nil {
			return err
		}
	}
	for _, m := range manufacturers {
		if err := checkStruct("manufacturers", m); err != nil {
			return err
		}
	}
	for _, c := range categories {
		if err := checkStruct("categories", c); err != nil {
			return err
		}
	}

	if dup := fn.Duplicates(cars, func(c Car) int { return c.ID }); len(dup) > 0 {
		return NewValidationError("cars", "id", strconv.Itoa(dup[0]), ErrDuplicateID)
	}
	if dup := fn.Duplicates(manufacturers, func(m Manufacturer) int { return m.ID }); len(dup) > 0 {
		return NewValidationError("manufacturers", "id", strconv.Itoa(dup[0]), ErrDuplicateID)
	}
	if dup := fn.Duplicates(categories, func(c Category) int { return c.ID }); len(dup) > 0 {
		return NewValidationError("categories", "id", strconv.Itoa(dup[0]), ErrDuplicateID)
	}
	return nil
}

func checkStruct(collection string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return NewValidationError(collection, fe.Field(), fmt.Sprint(fe.Value()), ErrInvalidCatalog)
	}
	return fmt.Errorf("catalog: validate %s: %w", collection, err)
}
