// Package cli provides output writers and input loaders for the hybridrank CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/hybridrank/internal/models"
	"github.com/hyperjump/hybridrank/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a --format flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q: want text or json", s)
	}
}

const separator = "─────────────────────────────────────────────────────────"

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	writeSearchResultsText(w, response)
	return nil
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms\n", len(response.Results), response.QueryTime)
	if response.Partial {
		degraded := make([]string, len(response.Degraded))
		for i, s := range response.Degraded {
			degraded[i] = string(s)
		}
		fmt.Fprintf(w, "Partial results: %s unavailable\n", strings.Join(degraded, ", "))
	}
	if len(response.Expansions) > 0 {
		fmt.Fprintf(w, "Expanded with: %s\n", strings.Join(response.Expansions, ", "))
	}
	fmt.Fprintln(w)
	for i := range response.Results {
		writeOneResult(w, &response.Results[i])
	}
}

func writeOneResult(w io.Writer, r *models.ResultRecord) {
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Rank: %d | Score: %.6f (Lexical: %s, Vector: %s)\n",
		r.Rank, r.FusedScore, rankString(r.LexicalRank, r.LexicalScore), rankString(r.VectorRank, r.VectorScore))
	fmt.Fprintf(w, "ID: %s\n", r.DocumentID)
	if r.Document == nil {
		fmt.Fprintln(w)
		return
	}
	if r.Document.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", r.Document.Title)
	}
	if st := r.Document.SectionType(); st != "" {
		fmt.Fprintf(w, "Section: %s\n", st)
	}
	if c := r.Document.Category(); c != "" {
		fmt.Fprintf(w, "Category: %s\n", c)
	}
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(utils.CollapseWhitespace(r.Document.Text), 200))
}

func rankString(rank int, score *float64) string {
	if rank == 0 || score == nil {
		return "-"
	}
	return fmt.Sprintf("#%d %.4f", rank, *score)
}

// WriteMatchResults writes match results to w in the given format.
func WriteMatchResults(w io.Writer, results []*models.MatchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	for _, r := range results {
		writeMatchText(w, r)
	}
	return nil
}

func writeMatchText(w io.Writer, r *models.MatchResult) {
	fmt.Fprintln(w, separator)
	if r.TargetID != "" {
		fmt.Fprintf(w, "Target: %s\n", r.TargetID)
	}
	fmt.Fprintf(w, "Overall: %.1f%%\n", r.Overall*100)

	names := make([]string, 0, len(r.SubScores))
	for name := range r.SubScores {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-18s %.1f%%\n", name, r.SubScores[name]*100)
	}
	fmt.Fprintf(w, "Matching: %s\n", listOrNone(r.MatchingAttributes))
	fmt.Fprintf(w, "Missing:  %s\n", listOrNone(r.MissingAttributes))
	if len(r.SkillGaps) > 0 {
		fmt.Fprintf(w, "Gaps:     %s\n", strings.Join(r.SkillGaps, ", "))
	}
	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}
	fmt.Fprintln(w)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
