package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
)

// ValidateConfig validates the entire configuration and returns all validation errors
func (c *Config) ValidateConfig() error {
	var validationErrors ValidationErrors

	sections := []struct {
		name  string
		value any
	}{
		{"general", &c.General},
		{"resolver", &c.Resolver},
		{"api", &c.API},
		{"sources", &c.Sources},
	}
	for _, s := range sections {
		if err := validate.Struct(s.value); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, s.name, "")...)
		}
	}

	base := c.BaseRegistry()
	validationErrors = append(validationErrors, c.validateOverrides(base)...)
	validationErrors = append(validationErrors, c.validateSources(base)...)

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

func (c *Config) validateSources(reg *feeds.Registry) ValidationErrors {
	var validationErrors ValidationErrors

	for _, list := range []struct {
		path string
		ids  []string
	}{
		{"sources.enabled", c.Sources.Enabled},
		{"sources.disabled", c.Sources.Disabled},
	} {
		for i, id := range list.ids {
			if !reg.Has(id) {
				validationErrors = append(validationErrors, ValidationError{
					FieldPath: fmt.Sprintf("%s[%d]", list.path, i),
					Message:   unknownSourceMessage(reg, id),
				})
			}
		}
	}

	disabled := make(map[string]bool, len(c.Sources.Disabled))
	for _, id := range c.Sources.Disabled {
		disabled[id] = true
	}

	if len(c.Sources.Enabled) > 0 {
		remaining := 0
		for _, id := range c.Sources.Enabled {
			if !disabled[id] {
				remaining++
			}
		}
		if remaining == 0 {
			validationErrors = append(validationErrors, ValidationError{
				FieldPath: "sources",
				Message:   "every enabled source is also disabled",
			})
		}
	}

	seen := make(map[string]bool)
	for _, id := range c.Sources.Enabled {
		if seen[id] {
			validationErrors = append(validationErrors, ValidationError{
				FieldPath: "sources.enabled",
				Message:   fmt.Sprintf("duplicate source: %s", id),
			})
		}
		seen[id] = true
	}

	return validationErrors
}

func (c *Config) validateOverrides(reg *feeds.Registry) ValidationErrors {
	var validationErrors ValidationErrors
	seenIDs := make(map[string]bool)

	for i, o := range c.Overrides {
		if o == nil {
			continue
		}
		itemName := o.ID
		if itemName == "" {
			itemName = fmt.Sprintf("source_override[%d]", i)
		}

		if err := validate.Struct(o); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, fmt.Sprintf("source_override.%d", i), itemName)...)
		}

		if o.ID != "" && !reg.Has(o.ID) {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fmt.Sprintf("source_override.%d.id", i),
				Message:   unknownSourceMessage(reg, o.ID),
			})
		}

		if o.ID != "" && seenIDs[o.ID] {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: "id",
				Message:   fmt.Sprintf("duplicate override for source: %s", o.ID),
			})
		}
		seenIDs[o.ID] = true
	}

	return validationErrors
}

// convertValidatorErrors converts go-playground/validator errors to our ValidationError format
func convertValidatorErrors(err error, fieldPrefix string, itemName string) ValidationErrors {
	var validationErrors ValidationErrors

	var validatorErrs validator.ValidationErrors
	if errors.As(err, &validatorErrs) {
		for _, e := range validatorErrs {
			fieldPath := fieldPrefix
			// e.Field() is the TOML tag name because of the registered TagNameFunc
			if e.Field() != "" {
				if fieldPrefix != "" {
					fieldPath = fieldPrefix + "." + e.Field()
				} else {
					fieldPath = e.Field()
				}
			}

			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fieldPath,
				Message:   getValidationMessage(e),
			})
		}
	}

	return validationErrors
}
