package tool

import "strings"

// MaskedSecretValue is used in user-facing output for sensitive config values.
const MaskedSecretValue = "**********"

// MaskSensitiveSettings returns a copy of values with sensitive entries masked.
// Empty values are left empty so operators can still see what is unset.
func MaskSensitiveSettings(settings []Setting, values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}

	sensitive := make(map[string]bool, len(settings))
	for _, setting := range settings {
		sensitive[setting.Name] = setting.Sensitive
	}

	masked := make(map[string]string, len(values))
	for key, value := range values {
		if sensitive[key] && strings.TrimSpace(value) != "" {
			masked[key] = MaskedSecretValue
			continue
		}
		masked[key] = value
	}
	return masked
}
