package repository

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// ChangedLines maps each file in a unified diff to the set of line numbers
// (in the new version) that were added or modified. Deleted files are
// omitted. Paths have their a/ and b/ prefixes removed.
func ChangedLines(patch string) (map[string]map[int]bool, error) {
	out := make(map[string]map[int]bool)
	if strings.TrimSpace(patch) == "" {
		return out, nil
	}
	fds, err := diff.NewMultiFileDiffReader(strings.NewReader(patch)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}
	for _, fd := range fds {
		if fd.NewName == "/dev/null" {
			continue
		}
		name := strings.TrimPrefix(fd.NewName, "b/")
		lines := out[name]
		if lines == nil {
			lines = make(map[int]bool)
			out[name] = lines
		}
		for _, h := range fd.Hunks {
			n := int(h.NewStartLine)
			for _, l := range strings.Split(string(h.Body), "\n") {
				if l == "" {
					continue
				}
				switch l[0] {
				case '+':
					lines[n] = true
					n++
				case ' ':
					n++
				}
			}
		}
	}
	return out, nil
}
