// Package summary accumulates per-runtime outcomes and
// writes the human and machine readable run reports.
package summary

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Kind classifies the outcome of one unit of work.
type Kind int

const (
	// Created means a pull request was opened.
	Created Kind = iota

	// NoChanges means every target file already carried
	// the version.
	NoChanges

	// WouldCreate means the dry run suppressed a pull
	// request that would otherwise have been opened.
	WouldCreate

	// CloneFailed means the working copy could not be
	// materialized.
	CloneFailed

	// NoMapping means no repository mapping exists for
	// the runtime.
	NoMapping

	// Failed means committing, pushing, verifying, or
	// opening the pull request failed.
	Failed
)

// String returns the machine-readable status token.
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case NoChanges:
		return "no-changes"
	case WouldCreate:
		return "would-create"
	case CloneFailed:
		return "clone-failed"
	case NoMapping:
		return "no-mapping"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of processing one runtime (or,
// for the annotation pipeline, the shared repository).
type Result struct {
	// Runtime labels the unit of work in the summary.
	Runtime string
	// Kind classifies the outcome.
	Kind Kind
	// PRURL is set when Kind is Created.
	PRURL string
	// Detail is the human-readable outcome text.
	Detail string
}

// Line renders the result as one summary line, using the
// status glyphs the invoking automation greps for.
func (r Result) Line() string {
	switch r.Kind {
	case Created:
		return fmt.Sprintf(
			"✅ %s: [PR created](%s)",
			r.Runtime, r.PRURL,
		)
	case NoChanges:
		return prefixed("⚠️", r.Runtime, r.Detail)
	case WouldCreate:
		return prefixed("🔍", r.Runtime, r.Detail)
	default:
		return prefixed("❌", r.Runtime, r.Detail)
	}
}

// prefixed builds a glyph-prefixed summary line. A result
// with no runtime label (a whole-run outcome such as an
// empty selection) renders the detail alone.
func prefixed(
	glyph string,
	runtime string,
	detail string,
) string {
	if runtime == "" {
		return glyph + " " + detail
	}

	return glyph + " " + runtime + ": " + detail
}

// Params records the run parameters echoed at the top of
// the summary.
type Params struct {
	// TargetBranch is the branch PRs target.
	TargetBranch string
	// RuntimeFilter is the requested runtime name, or
	// "all".
	RuntimeFilter string
	// DryRun reports whether side effects were
	// suppressed.
	DryRun bool
}

// Report collects the results of one run.
type Report struct {
	params  Params
	results []Result
}

// New returns an empty Report for the given run
// parameters.
func New(params Params) *Report {
	return &Report{params: params}
}

// Add appends one result.
func (rp *Report) Add(res Result) {
	rp.results = append(rp.results, res)
}

// Results returns the accumulated results in insertion
// order.
func (rp *Report) Results() []Result {
	return rp.results
}

// PRCount returns the number of created pull requests.
func (rp *Report) PRCount() int {
	count := 0

	for _, res := range rp.results {
		if res.Kind == Created {
			count++
		}
	}

	return count
}

// FirstPRURL returns the URL of the first created pull
// request, or empty string when none was created.
func (rp *Report) FirstPRURL() string {
	for _, res := range rp.results {
		if res.Kind == Created {
			return res.PRURL
		}
	}

	return ""
}

// Render returns the markdown summary document.
func (rp *Report) Render() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(
		"**Target Branch:** %s\n",
		rp.params.TargetBranch,
	))

	if rp.params.RuntimeFilter != "" &&
		rp.params.RuntimeFilter != "all" {
		sb.WriteString(fmt.Sprintf(
			"**Runtime Filter:** %s\n",
			rp.params.RuntimeFilter,
		))
	}

	dryRun := "No"
	if rp.params.DryRun {
		dryRun = "Yes"
	}

	sb.WriteString(fmt.Sprintf(
		"**Dry Run:** %s\n\n", dryRun,
	))

	for _, res := range rp.results {
		sb.WriteString(res.Line())
		sb.WriteByte('\n')
	}

	return sb.String()
}

// WriteSummary writes the markdown summary to path.
func (rp *Report) WriteSummary(path string) error {
	const errCtx = "writing summary"

	//nolint:gosec // consumed by the invoking workflow
	if err := os.WriteFile(
		path, []byte(rp.Render()), 0o644,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// WritePRURL writes the first created PR URL to path as
// a workflow step output. No file is written when the
// run created no pull request.
func (rp *Report) WritePRURL(path string) error {
	const errCtx = "writing pr url"

	url := rp.FirstPRURL()
	if url == "" {
		return nil
	}

	//nolint:gosec // consumed by the invoking workflow
	if err := os.WriteFile(
		path, []byte(url), 0o644,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// WritePRCount writes the number of created pull
// requests to path as a workflow step output.
func (rp *Report) WritePRCount(path string) error {
	const errCtx = "writing pr count"

	//nolint:gosec // consumed by the invoking workflow
	if err := os.WriteFile(
		path,
		[]byte(strconv.Itoa(rp.PRCount())),
		0o644,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// resultsFile is the machine-readable results document.
type resultsFile struct {
	TargetBranch  string       `json:"targetBranch"`
	RuntimeFilter string       `json:"runtimeFilter"`
	DryRun        bool         `json:"dryRun"`
	PRCount       int          `json:"prCount"`
	Results       []jsonResult `json:"results"`
}

// jsonResult is one runtime outcome in the results
// document.
type jsonResult struct {
	Runtime string `json:"runtime"`
	Status  string `json:"status"`
	PRURL   string `json:"prUrl,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// WriteJSON writes the machine-readable results document
// to path.
func (rp *Report) WriteJSON(path string) error {
	const errCtx = "writing json results"

	doc := resultsFile{
		TargetBranch:  rp.params.TargetBranch,
		RuntimeFilter: rp.params.RuntimeFilter,
		DryRun:        rp.params.DryRun,
		PRCount:       rp.PRCount(),
		Results: make(
			[]jsonResult, 0, len(rp.results),
		),
	}

	for _, res := range rp.results {
		doc.Results = append(doc.Results, jsonResult{
			Runtime: res.Runtime,
			Status:  res.Kind.String(),
			PRURL:   res.PRURL,
			Detail:  res.Detail,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf(
			"%s: marshal: %w", errCtx, err,
		)
	}

	//nolint:gosec // consumed by the invoking workflow
	if err := os.WriteFile(
		path, data, 0o644,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
