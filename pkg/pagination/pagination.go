package pagination

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultSize is the standard page size when a size is not provided.
	DefaultSize = 25
	// MaxSize caps how many rows any page can request.
	MaxSize = 100
)

// Params holds page-number pagination inputs from controllers or services.
// Page is zero-based.
type Params struct {
	Page int
	Size int
}

// Normalize enforces the default and maximum page size and clamps negative pages.
func (p Params) Normalize() Params {
	return Params{Page: max(p.Page, 0), Size: NormalizeSize(p.Size)}
}

// Offset returns the row offset for the normalized params.
func (p Params) Offset() int {
	n := p.Normalize()
	return n.Page * n.Size
}

// NormalizeSize enforces the configured default and maximum sizes.
func NormalizeSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// Parse reads page and size from raw query values. Empty values fall back to defaults.
func Parse(page, size string) (Params, error) {
	var params Params
	if v := strings.TrimSpace(page); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Params{}, fmt.Errorf("invalid page %q", page)
		}
		params.Page = n
	}
	if v := strings.TrimSpace(size); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Params{}, fmt.Errorf("invalid size %q", size)
		}
		params.Size = n
	}
	return params.Normalize(), nil
}
