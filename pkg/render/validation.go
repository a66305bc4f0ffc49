package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/segtree/pkg/script"
)

// Validation writes a human readable verdict for a script validation
// result. err is the value returned by script.Validate.
func Validation(w io.Writer, label string, err error, useColor bool) {
	p := newPalette(useColor)

	if err == nil {
		p.ok.Fprintf(w, "script is valid (%s)\n", label)

		return
	}

	p.failed.Fprintf(w, "script validation failed (%s)\n", label)

	var verr *script.ValidationError
	if !errors.As(err, &verr) {
		p.failed.Fprintf(w, "  - %v\n", err)

		return
	}

	p.muted.Fprintf(w, "  %d %s\n", len(verr.Problems), plural(len(verr.Problems), "problem"))

	for _, problem := range verr.Problems {
		p.failed.Fprintf(w, "  - %s\n", problem)
	}

	fmt.Fprintln(w)
}
