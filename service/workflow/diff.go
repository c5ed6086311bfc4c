package workflow

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// bodyDiff produces a GNU unified diff between two content-body revisions,
// stored with the archived version so reviewers can see what changed on
// resubmission. Identical bodies yield an empty diff.
func bodyDiff(oldBody, newBody string, version int) string {
	if oldBody == newBody {
		return ""
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldBody),
		B:        difflib.SplitLines(newBody),
		FromFile: fmt.Sprintf("version %d", version),
		ToFile:   fmt.Sprintf("version %d", version+1),
		Context:  3,
	}

	patch, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return ""
	}
	return patch
}
