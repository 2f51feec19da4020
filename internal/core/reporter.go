package core

import (
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"xpkg/internal/ports"
	"xpkg/internal/types"
)

const listingWidth = 80

// Reporter renders the transaction preview: the package listing and the
// aggregated download and installed sizes.
type Reporter struct {
	Sizes ports.SizeFormatterPort
}

func NewReporter(sizes ports.SizeFormatterPort) Reporter {
	return Reporter{Sizes: sizes}
}

func (r Reporter) Totals(set types.TransactionSet) (int64, int64) {
	var download, installed int64
	for _, entry := range set.Entries {
		download += entry.SizeDownload
		installed += entry.SizeInstalled
	}
	return download, installed
}

// Listing word-wraps "name-version" tokens so that no line grows past
// listingWidth columns. Each token is charged its length plus four
// columns for the separator and indentation.
func (r Reporter) Listing(set types.TransactionSet) string {
	var b strings.Builder
	cols := 0
	first := true
	for _, entry := range set.Entries {
		cost := len(entry.Name) + len(entry.Version) + 4
		cols += cost
		if cols <= listingWidth {
			if first {
				b.WriteString("  ")
				first = false
			}
		} else {
			if first {
				b.WriteString("  ")
				first = false
			} else {
				b.WriteString("\n  ")
			}
			cols = cost
		}
		b.WriteString(entry.PkgVer())
		b.WriteString(" ")
	}
	return b.String()
}

func (r Reporter) Preview(w io.Writer, set types.TransactionSet, descr string) error {
	download, installed := r.Totals(set)
	fmt.Fprintf(w, "\nThe following new packages will be %s:\n\n", descr)
	fmt.Fprint(w, r.Listing(set))
	fmt.Fprint(w, "\n\n")

	dl, err := r.humanize(download)
	if err != nil {
		fmt.Fprintf(w, "error: humanize download size: %v\n", err)
		return err
	}
	fmt.Fprintf(w, "Total download size: %s\n", dl)
	inst, err := r.humanize(installed)
	if err != nil {
		fmt.Fprintf(w, "error: humanize installed size: %v\n", err)
		return err
	}
	fmt.Fprintf(w, "Total installed size: %s\n\n", inst)
	return nil
}

func (r Reporter) humanize(size int64) (string, error) {
	if r.Sizes == nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("reporter requires a size formatter")
	}
	value, err := r.Sizes.Humanize(size)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeOf(err)).
			WithMsg("failed to format transaction size").
			WithCause(err)
	}
	return value, nil
}
