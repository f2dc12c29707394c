package persist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joelklabo/planloop/internal/planstate"
	"gopkg.in/yaml.v3"
)

// PlanloopVersion is stamped into PLAN.md's front matter.
const PlanloopVersion = "1.0"

// RenderPlan renders the Markdown view of state, per SPEC_FULL.md §F:
// a YAML front-matter block followed by sections for tasks, context,
// next steps, signals, artifacts, and final summary. Ported from
// original_source's core/render.py.
func RenderPlan(s *planstate.SessionState) string {
	front := renderFrontMatter(s)

	sections := []string{
		fmt.Sprintf("# Plan: %s", s.Title),
		"",
		"## Tasks",
		formatTasks(s.Tasks),
		"",
		"## Context",
		formatBullets(s.ContextNotes),
		"",
		"## Next Steps",
		formatBullets(s.NextSteps),
		"",
		"## Signals (Snapshot)",
		formatSignals(s.Signals),
		"",
		"## Artifacts",
		formatArtifacts(s.Artifacts),
		"",
		"## Final Summary",
		finalSummaryOr(s, "_Not provided yet_"),
	}
	body := strings.Join(sections, "\n")
	return front + "\n" + body + "\n"
}

func renderFrontMatter(s *planstate.SessionState) string {
	data := map[string]any{
		"planloop_version": PlanloopVersion,
		"schema_version":   s.SchemaVersion,
		"session":          s.Session,
		"name":             s.Name,
		"title":            s.Title,
		"purpose":          s.Purpose,
		"project_root":     s.ProjectRoot,
		"branch":           s.Branch,
		"prompt_set":       s.Prompts.Set,
		"created_at":       s.CreatedAt.Format(timeLayout),
		"last_updated_at":  s.LastUpdatedAt.Format(timeLayout),
		"tags":             s.Tags,
		"environment": map[string]any{
			"os":       s.Environment.OS,
			"arch":     s.Environment.Arch,
			"hostname": s.Environment.Hostname,
		},
	}
	out, err := yaml.Marshal(data)
	if err != nil {
		return "---\n---\n"
	}
	return "---\n" + strings.TrimRight(string(out), "\n") + "\n---\n"
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func formatTasks(tasks []*planstate.Task) string {
	if len(tasks) == 0 {
		return "_No tasks defined._"
	}
	lines := []string{
		"| ID | Title | Type | Status | Depends | Commit |",
		"| --- | --- | --- | --- | --- | --- |",
	}
	for _, t := range tasks {
		depends := "-"
		if len(t.DependsOn) > 0 {
			parts := make([]string, len(t.DependsOn))
			for i, d := range t.DependsOn {
				parts[i] = strconv.Itoa(d)
			}
			depends = strings.Join(parts, ", ")
		}
		commit := t.CommitSHA
		if commit == "" {
			commit = "-"
		}
		lines = append(lines, fmt.Sprintf("| %d | %s | %s | %s | %s | %s |",
			t.ID, t.Title, t.Type, t.Status, depends, commit))
	}
	return strings.Join(lines, "\n")
}

func formatBullets(items []string) string {
	if len(items) == 0 {
		return "- _None_"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func formatSignals(signals []*planstate.Signal) string {
	if len(signals) == 0 {
		return "- _No signals_"
	}
	lines := make([]string, 0, len(signals))
	for _, sig := range signals {
		status := "CLOSED"
		if sig.Open {
			status = "OPEN"
		}
		lines = append(lines, fmt.Sprintf("- [%s] (%s) %s — %s", sig.Level, status, sig.Title, sig.Message))
	}
	return strings.Join(lines, "\n")
}

func formatArtifacts(artifacts []*planstate.Artifact) string {
	if len(artifacts) == 0 {
		return "- _No artifacts recorded_"
	}
	lines := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path := a.Path
		if path == "" {
			path = "(in memory)"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", a.Type, a.Summary, path))
	}
	return strings.Join(lines, "\n")
}

func finalSummaryOr(s *planstate.SessionState, fallback string) string {
	if s.FinalSummary != nil && *s.FinalSummary != "" {
		return *s.FinalSummary
	}
	return fallback
}
