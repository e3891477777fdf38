package discover

import (
	"fmt"
	"strings"

	"github.com/san-kum/dynid/internal/dynamo"
	"github.com/san-kum/dynid/internal/sparse"
)

// Equations renders the discovered dynamics as human-readable strings, one
// per state dimension, combining the known linear terms with the selected
// symbolic model.
func Equations(model *sparse.Model, known dynamo.Params) []string {
	knownTerms := []string{
		fmt.Sprintf("%.4g*x1", known[0]),
		fmt.Sprintf("-%.4g*x2", known[3]),
	}

	out := make([]string, len(model.Terms))
	for k, terms := range model.Terms {
		var b strings.Builder
		fmt.Fprintf(&b, "dx%d/dt = %s", k+1, knownTerms[k])
		for _, t := range terms {
			if t.Coef >= 0 {
				fmt.Fprintf(&b, " + %.4g", t.Coef)
			} else {
				fmt.Fprintf(&b, " - %.4g", -t.Coef)
			}
			if t.Name != "1" {
				fmt.Fprintf(&b, "*%s", t.Name)
			}
		}
		out[k] = b.String()
	}
	return out
}
