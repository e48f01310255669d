package config

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
)

// getValidationMessage returns a human-readable message for a validation error
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "max":
		return fmt.Sprintf("must be <= %s", e.Param())
	case "url":
		return "must be a valid URL"
	case "hostname_port":
		return "must be in format 'host:port'"
	case "upstream_url":
		return "must be a valid upstream URL (system://, udp://ip:port, tcp://ip:port, doh://host/path or https://host/path)"
	case "snapshot_name":
		return "must contain {{" + TemplateVarSourceID + "}}"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	ItemName  string // For source overrides: the overridden source id
	FieldPath string // Dot-notation field path (e.g., "general.max_parallel_loads")
	Message   string // Human-readable error message
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d error(s):\n", len(ve)))
	for i, err := range ve {
		if err.ItemName != "" {
			sb.WriteString(fmt.Sprintf("  %d. [%s] %s: %s\n", i+1, err.ItemName, err.FieldPath, err.Message))
		} else {
			sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.FieldPath, err.Message))
		}
	}
	return sb.String()
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("upstream_url", validateUpstreamURLTag); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("snapshot_name", validateSnapshotName); err != nil {
		panic(err)
	}

	// Register function to get field name from "toml" tag
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// unknownSourceMessage describes an id missing from reg.
func unknownSourceMessage(reg *feeds.Registry, id string) string {
	return fmt.Sprintf("unknown source %q (known: %s)", id, strings.Join(reg.IDs(), ", "))
}

func validateSnapshotName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return strings.Contains(name, "{{"+TemplateVarSourceID+"}}") && !strings.ContainsAny(name, `/\`)
}

func validateUpstreamURLTag(fl validator.FieldLevel) bool {
	return validateUpstreamURL(fl.Field().String()) == nil
}

// validateUpstreamURL validates DNS upstream URL format
func validateUpstreamURL(upstream string) error {
	if upstream == "" {
		return fmt.Errorf("upstream URL cannot be empty")
	}

	if upstream == DefaultSystemUpstream {
		return nil
	}

	u, err := url.Parse(upstream)
	if err != nil {
		return fmt.Errorf("invalid upstream URL: %w", err)
	}

	switch u.Scheme {
	case "udp", "tcp":
		if u.Host == "" || u.Path != "" {
			return fmt.Errorf("invalid %s upstream format (expected %s://ip:port)", u.Scheme, u.Scheme)
		}
		return nil
	case "doh", "https":
		if u.Host == "" || u.Path == "" {
			return fmt.Errorf("invalid DoH upstream format (expected %s://host/path)", u.Scheme)
		}
		return nil
	}

	return fmt.Errorf("unsupported upstream scheme (supported: system://, udp://, tcp://, doh://, https://)")
}
