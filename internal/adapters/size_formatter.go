package adapters

import (
	"fmt"
	"math"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/docker/go-units"

	"xpkg/internal/ports"
)

var siUnits = []string{"", "K", "M", "G", "T", "P", "E"}

// SizeFormatterAdapter renders byte counts with decimal (SI) scaling and
// at most three significant digits, for example 1500000 as "1.5M" and
// 999 as "999".
type SizeFormatterAdapter struct{}

func NewSizeFormatterAdapter() SizeFormatterAdapter {
	return SizeFormatterAdapter{}
}

func (a SizeFormatterAdapter) Humanize(bytes int64) (string, error) {
	if bytes < 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("negative size %d", bytes))
	}
	return units.CustomSize("%.3g%s", roundSignificant(float64(bytes), 3), 1000.0, siUnits), nil
}

// roundSignificant rounds v to digits significant digits before a unit is
// picked, so 999999 becomes 1M rather than 1000K.
func roundSignificant(v float64, digits int) float64 {
	if v == 0 {
		return 0
	}
	scale := math.Pow(10, math.Floor(math.Log10(v))-float64(digits-1))
	return math.Round(v/scale) * scale
}

var _ ports.SizeFormatterPort = SizeFormatterAdapter{}
