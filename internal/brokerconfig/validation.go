package brokerconfig

import (
	"fmt"
	"strings"
)

// ValidationError mirrors the field+message shape the teacher's config
// package uses for entity validation (internal/config.ValidationError).
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

func (e ValidationErrors) HasErrors() bool { return len(e) > 0 }

var validPresets = map[string]bool{
	"development": true, "standard": true, "strict": true, "isolated": true,
	"network": true, "filesystem": true, "wasm": true, "none": true,
}

var validTransports = map[string]bool{"stdio": true, "http": true}
var validAuthTypes = map[string]bool{"bearer": true, "header": true, "none": true, "": true}

// Validate checks the full configuration surface against spec §6's
// enumerated recognized options, returning every violation found rather
// than failing fast on the first.
func Validate(cfg Config) ValidationErrors {
	var errs ValidationErrors

	if cfg.Paths.SkillsRoot == "" {
		errs = append(errs, ValidationError{Field: "paths.skills_root", Message: "is required"})
	}

	if cfg.Sandbox.Preset != "" && !validPresets[cfg.Sandbox.Preset] {
		errs = append(errs, ValidationError{Field: "sandbox.preset", Value: cfg.Sandbox.Preset, Message: "must be one of the recognized sandbox presets"})
	}

	seenAlias := map[string]bool{}
	for i, up := range cfg.Upstreams {
		prefix := fmt.Sprintf("upstreams[%d]", i)
		if up.Alias == "" {
			errs = append(errs, ValidationError{Field: prefix + ".alias", Message: "is required"})
		} else if seenAlias[up.Alias] {
			errs = append(errs, ValidationError{Field: prefix + ".alias", Value: up.Alias, Message: "duplicates an earlier upstream alias"})
		} else {
			seenAlias[up.Alias] = true
		}

		if !validTransports[up.Transport] {
			errs = append(errs, ValidationError{Field: prefix + ".transport", Value: up.Transport, Message: "must be one of: stdio, http"})
		}
		switch up.Transport {
		case "stdio":
			if up.Command == "" {
				errs = append(errs, ValidationError{Field: prefix + ".command", Message: "is required for stdio transport"})
			}
		case "http":
			if up.URL == "" {
				errs = append(errs, ValidationError{Field: prefix + ".url", Message: "is required for http transport"})
			}
		}

		if !validAuthTypes[up.Auth.Type] {
			errs = append(errs, ValidationError{Field: prefix + ".auth.type", Value: up.Auth.Type, Message: "must be one of: bearer, header, none"})
		}
		if up.Auth.Type == "bearer" && up.Auth.EnvVar == "" {
			errs = append(errs, ValidationError{Field: prefix + ".auth.env", Message: "is required when auth.type is bearer"})
		}
		if up.Auth.Type == "header" && (up.Auth.EnvVar == "" || up.Auth.Header == "") {
			errs = append(errs, ValidationError{Field: prefix + ".auth.header", Message: "auth.env and auth.header are both required when auth.type is header"})
		}
	}

	for i, repo := range cfg.AgentSkillsRepos {
		if repo.Repo == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("agent_skills_repos[%d].repo", i), Message: "is required"})
		}
	}

	if cfg.Persistence.Enabled && cfg.Persistence.PruneAfterDays < 0 {
		errs = append(errs, ValidationError{Field: "persistence.prune_after_days", Value: cfg.Persistence.PruneAfterDays, Message: "must not be negative"})
	}

	return errs
}
