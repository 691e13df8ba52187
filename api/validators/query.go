package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
)

// IntRange bounds an integer query parameter and supplies its fallback.
type IntRange struct {
	Default int
	Min     int
	Max     int
}

// QueryInt reads key from the query string, falling back to rng.Default when absent.
func QueryInt(r *http.Request, key string, rng IntRange) (int, error) {
	values, present := r.URL.Query()[key]
	if !present || strings.TrimSpace(values[0]) == "" {
		return rng.Default, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "query parameter must be an integer").
			WithDetails(map[string]string{key: "must be an integer"})
	}
	if n < rng.Min || n > rng.Max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]string{key: "must be between " + strconv.Itoa(rng.Min) + " and " + strconv.Itoa(rng.Max)})
	}
	return n, nil
}
