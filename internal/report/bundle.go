package report

import (
	"fmt"
	"io"
	"strings"
)

// FilePair is one file's before/after content and its project-relative path.
type FilePair struct {
	Project  string
	Path     string
	Before   string
	After    string
	SizeKB   float64
}

const ruleWidth = 70

// GroupFilesBySize splits files into groups whose total SizeKB does not
// exceed maxGroupKB, adding files to the current group greedily and
// starting a new one once the next file would overflow it; a single file
// larger than maxGroupKB forms a group of its own (mirrors
// original_source/create_validation_files.py's group_files_by_size).
func GroupFilesBySize(files []FilePair, maxGroupKB float64) [][]FilePair {
	var groups [][]FilePair
	var current []FilePair
	var currentSize float64

	for _, f := range files {
		if currentSize+f.SizeKB > maxGroupKB && len(current) > 0 {
			groups = append(groups, current)
			current = nil
			currentSize = 0
		}
		current = append(current, f)
		currentSize += f.SizeKB
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// WriteValidationBundles groups files by size (default 50-200KB per
// group) and writes one human-reviewable bundle per group to w: a header,
// then for each file a stats block (size, line counts, percent removed)
// followed by BEFORE and AFTER sections, divided by a banner between
// files, and a footer.
func WriteValidationBundles(w io.Writer, files []FilePair, maxGroupKB int) error {
	if maxGroupKB <= 0 {
		maxGroupKB = 200
	}
	groups := GroupFilesBySize(files, float64(maxGroupKB))

	for groupIdx, group := range groups {
		if err := writeBundle(w, groupIdx+1, group); err != nil {
			return err
		}
	}
	return nil
}

func writeBundle(w io.Writer, groupNum int, files []FilePair) error {
	rule := strings.Repeat("=", ruleWidth)
	sub := strings.Repeat("-", ruleWidth)
	divider := strings.Repeat("▼", ruleWidth)

	if _, err := fmt.Fprintf(w, "%s\nValidation bundle #%d (%d files)\n%s\n\n", rule, groupNum, len(files), rule); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Review each file below: confirm comments were fully removed, code logic is intact, and string contents are preserved.\n\n"); err != nil {
		return err
	}

	for i, f := range files {
		origLines := strings.Count(f.Before, "\n")
		cleanLines := strings.Count(f.After, "\n")
		removed := origLines - cleanLines
		reduction := 0.0
		if origLines > 0 {
			reduction = float64(removed) / float64(origLines) * 100
		}

		if _, err := fmt.Fprintf(w, "\n%s\nFile #%d: %s\n%s\n\n", rule, i+1, f.Path, rule); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "stats:\n  size: %.1f KB\n  lines before: %d\n  lines after: %d\n  lines removed: %d (%.1f%%)\n\n",
			f.SizeKB, origLines, cleanLines, removed, reduction); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, "%s\nBEFORE:\n%s\n%s\n\n", sub, sub, f.Before); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\nAFTER:\n%s\n%s\n\n", sub, sub, f.After); err != nil {
			return err
		}

		if i < len(files)-1 {
			if _, err := fmt.Fprintf(w, "\n%s\nnext file\n%s\n", divider, divider); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintf(w, "\n%s\nend of bundle #%d\n%s\n", rule, groupNum, rule)
	return err
}
