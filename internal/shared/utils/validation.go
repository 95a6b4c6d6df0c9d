package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Payload size limits in bytes.
const (
	MaxManifestSize = 256 * 1024 // app manifest
	MaxExtrasSize   = 64 * 1024  // intent extras
)

// MaxExtrasDepth bounds nesting in intent extras.
const MaxExtrasDepth = 20

// String length limits.
const (
	MaxIDLength          = 128
	MaxNameLength        = 256
	MaxDescriptionLength = 2048
	MaxCategoryLength    = 64
	MaxActionLength      = 128
	MaxVersionLength     = 32
)

var (
	// AppIDPattern matches dotted reverse-DNS package identifiers
	// (com.example.camera).
	AppIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)
	// ActionPattern matches intent actions and component names.
	ActionPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	// VersionPattern matches dotted numeric versions with an optional
	// suffix (1.2.0, 1.2.0-beta1).
	VersionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*([.-][a-zA-Z0-9]+)*$`)

	categoryPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// ValidateExtras bounds an intent extras payload arriving from outside
// the process. Size and nesting limits keep one bad dispatch from
// wedging the UI thread.
func ValidateExtras(extras map[string]interface{}) error {
	if len(extras) == 0 {
		return nil
	}

	data, err := json.Marshal(extras)
	if err != nil {
		return fmt.Errorf("extras are not serializable: %w", err)
	}
	if len(data) > MaxExtrasSize {
		return fmt.Errorf("extras size %d bytes exceeds maximum %d bytes", len(data), MaxExtrasSize)
	}

	return checkDepth(extras, 0, MaxExtrasDepth)
}

func checkDepth(data interface{}, depth, maxDepth int) error {
	if depth > maxDepth {
		return fmt.Errorf("nesting depth %d exceeds maximum %d", depth, maxDepth)
	}

	switch v := data.(type) {
	case map[string]interface{}:
		for _, value := range v {
			if err := checkDepth(value, depth+1, maxDepth); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, value := range v {
			if err := checkDepth(value, depth+1, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateString checks length bounds and rejects embedded null bytes.
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if value == "" {
		if required {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}

// ValidateAppID validates a dotted package identifier.
func ValidateAppID(id string) error {
	if err := ValidateString(id, "app id", 3, MaxIDLength, true); err != nil {
		return err
	}
	if !AppIDPattern.MatchString(id) {
		return fmt.Errorf("app id must be a dotted identifier (e.g. com.example.camera)")
	}
	return nil
}

// ValidateAction validates an intent action or component name.
func ValidateAction(action string, required bool) error {
	if err := ValidateString(action, "action", 1, MaxActionLength, required); err != nil {
		return err
	}
	if action != "" && !ActionPattern.MatchString(action) {
		return fmt.Errorf("action contains invalid characters (only alphanumeric, dots, hyphens, and underscores allowed)")
	}
	return nil
}

// ValidateVersion validates a package version string.
func ValidateVersion(version string, required bool) error {
	if err := ValidateString(version, "version", 1, MaxVersionLength, required); err != nil {
		return err
	}
	if version != "" && !VersionPattern.MatchString(version) {
		return fmt.Errorf("invalid version format: %s", version)
	}
	return nil
}

// ValidateName validates a display name.
func ValidateName(name, fieldName string) error {
	return ValidateString(name, fieldName, 1, MaxNameLength, true)
}

// ValidateDescription validates a description field.
func ValidateDescription(description, fieldName string, required bool) error {
	return ValidateString(description, fieldName, 0, MaxDescriptionLength, required)
}

// ValidateCategory validates a store category.
func ValidateCategory(category string, required bool) error {
	if err := ValidateString(category, "category", 0, MaxCategoryLength, required); err != nil {
		return err
	}
	if category != "" && !categoryPattern.MatchString(category) {
		return fmt.Errorf("category must contain only lowercase letters, numbers, and hyphens")
	}
	return nil
}
