package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
)

// ParseQueryInt reads an optional bounded integer query parameter. An absent
// value yields fallback.
func ParseQueryInt(r *http.Request, key string, fallback, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	details := map[string]string{key: "must be an integer between " + strconv.Itoa(min) + " and " + strconv.Itoa(max)}

	value, err := strconv.Atoi(raw)
	if err != nil || value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter "+key).WithDetails(details)
	}
	return value, nil
}
