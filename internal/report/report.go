// Package report aggregates per-project stripping statistics and writes
// human-reviewable before/after bundles. It is the Go home for what
// original_source/analyze_stats.py and create_validation_files.py did as
// standalone scripts.
package report

import (
	"fmt"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ProjectStats holds the totals for a single project's stripping run.
type ProjectStats struct {
	Project      string
	FileCount    int
	BytesBefore  int64
	BytesAfter   int64
	LinesBefore  int64
	LinesAfter   int64
	ElapsedNanos int64
}

// CompressionRatio returns the fraction of bytes removed, 0 if there were
// no input bytes.
func (p ProjectStats) CompressionRatio() float64 {
	if p.BytesBefore == 0 {
		return 0
	}
	return 1 - float64(p.BytesAfter)/float64(p.BytesBefore)
}

// ThroughputMBPerSec returns processing throughput in input MB/s, 0 if no
// time elapsed.
func (p ProjectStats) ThroughputMBPerSec() float64 {
	seconds := float64(p.ElapsedNanos) / 1e9
	if seconds <= 0 {
		return 0
	}
	const mb = 1024 * 1024
	return float64(p.BytesBefore) / mb / seconds
}

// FileDelta ranks a single file by bytes saved, for the top-N report.
type FileDelta struct {
	Project     string
	Path        string
	BytesBefore int64
	BytesAfter  int64
}

// BytesSaved is BytesBefore - BytesAfter.
func (f FileDelta) BytesSaved() int64 {
	return f.BytesBefore - f.BytesAfter
}

// Total is the aggregate across every project in a run.
type Total struct {
	Projects     []ProjectStats
	FileCount    int
	BytesBefore  int64
	BytesAfter   int64
	LinesBefore  int64
	LinesAfter   int64
	ElapsedNanos int64
	TopFiles     []FileDelta
}

// CompressionRatio is the fraction of bytes removed across all projects.
func (t Total) CompressionRatio() float64 {
	if t.BytesBefore == 0 {
		return 0
	}
	return 1 - float64(t.BytesAfter)/float64(t.BytesBefore)
}

// ThroughputMBPerSec is overall processing throughput in input MB/s.
func (t Total) ThroughputMBPerSec() float64 {
	seconds := float64(t.ElapsedNanos) / 1e9
	if seconds <= 0 {
		return 0
	}
	const mb = 1024 * 1024
	return float64(t.BytesBefore) / mb / seconds
}

// DefaultTopN is how many biggest files Aggregate lists by default.
const DefaultTopN = 10

// Aggregate sums a set of per-project stats into a Total, and ranks the
// topN biggest files (by bytes saved) across all of them. An empty input
// yields a zero Total rather than dividing by zero anywhere.
func Aggregate(projects []ProjectStats, files []FileDelta, topN int) Total {
	if topN <= 0 {
		topN = DefaultTopN
	}

	var t Total
	t.Projects = projects
	for _, p := range projects {
		t.FileCount += p.FileCount
		t.BytesBefore += p.BytesBefore
		t.BytesAfter += p.BytesAfter
		t.LinesBefore += p.LinesBefore
		t.LinesAfter += p.LinesAfter
		t.ElapsedNanos += p.ElapsedNanos
	}

	t.TopFiles = topFiles(files, topN)
	return t
}

func topFiles(files []FileDelta, topN int) []FileDelta {
	sorted := make([]FileDelta, len(files))
	copy(sorted, files)
	// Small-N insertion sort is adequate here: topN is a handful and file
	// counts per run are modest; no need for sort.Slice overhead analysis.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].BytesSaved() > sorted[j-1].BytesSaved(); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	return sorted
}

// FindProject resolves a possibly partial or misspelled project name
// against the known project list: exact match first, falling back to a
// fuzzy rank match, before giving up with an error.
func FindProject(name string, known []string) (string, error) {
	for _, k := range known {
		if k == name {
			return k, nil
		}
	}

	ranks := fuzzy.RankFindFold(name, known)
	if len(ranks) > 0 {
		best := ranks[0]
		for _, r := range ranks[1:] {
			if r.Distance < best.Distance {
				best = r
			}
		}
		return best.Target, nil
	}

	return "", fmt.Errorf("no project matching %q (known: %v)", name, known)
}
