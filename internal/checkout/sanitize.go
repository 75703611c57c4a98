package checkout

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SanitizeImage returns an https URL for raw or false when it must be dropped.
// Protocol-relative values are upgraded to https first.
func SanitizeImage(v *validator.Validate, raw string) (string, bool) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", false
	}
	if strings.HasPrefix(candidate, "//") {
		candidate = "https:" + candidate
	}
	if err := v.Var(candidate, "required,url,secure_url"); err != nil {
		return "", false
	}
	return candidate, true
}

func validateSecureURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return u.IsAbs() && strings.EqualFold(u.Scheme, "https") && u.Host != ""
}
