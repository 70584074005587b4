package skillstore

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// ValidationError mirrors the field+message shape the teacher's config
// package uses for entity validation (internal/config.ValidationError),
// generalized to skill front-matter fields.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msg := e[0].Error()
	for _, extra := range e[1:] {
		msg += "; " + extra.Error()
	}
	return msg
}

func (e ValidationErrors) HasErrors() bool { return len(e) > 0 }

func validateFrontMatter(fm frontMatter) ValidationErrors {
	var errs ValidationErrors

	if fm.Name == "" {
		errs = append(errs, ValidationError{"name", "is required"})
	} else if !namePattern.MatchString(fm.Name) {
		errs = append(errs, ValidationError{"name", "must match [a-z0-9][a-z0-9-]{0,63}"})
	}

	if fm.Description == "" {
		errs = append(errs, ValidationError{"description", "is required"})
	} else if utf8.RuneCountInString(fm.Description) > 1024 {
		errs = append(errs, ValidationError{"description", "must be at most 1024 characters"})
	}

	if utf8.RuneCountInString(fm.Compatibility) > 500 {
		errs = append(errs, ValidationError{"compatibility", "must be at most 500 characters"})
	}

	for _, pattern := range fm.AllowedTools {
		if err := validateFQNGlob(pattern); err != nil {
			errs = append(errs, ValidationError{"allowed-tools", err.Error()})
		}
	}

	return errs
}

// validateFQNGlob rejects an empty pattern and any pattern containing
// control characters. It does not check the pattern against the FQN shapes
// the registry produces (`<alias>/<name>` or `skill.<name>`); any other
// string is accepted.
func validateFQNGlob(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("empty glob pattern")
	}
	for _, r := range pattern {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("glob pattern %q contains control characters", pattern)
		}
	}
	return nil
}
