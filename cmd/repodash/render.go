package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"repodash/config"
	"repodash/detail"
	"repodash/models"
)

var (
	headerColor = color.New(color.Bold, color.FgCyan)
	pinColor    = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed)
	dimColor    = color.New(color.Faint)
)

// heatmapShades maps contribution counts to glyphs, lightest first.
var heatmapShades = []string{"·", "░", "▒", "▓", "█"}

func renderState(w io.Writer, s models.SessionState, d config.Dashboard) {
	fmt.Fprintln(w)
	switch u := s.Account.User(); {
	case u != nil:
		headerColor.Fprintf(w, "%s", u.Login)
	case s.Account.State() == models.LoggingIn:
		headerColor.Fprint(w, "signing in")
	default:
		headerColor.Fprint(w, "signed out")
	}
	if !s.UpdatedAt.IsZero() {
		dimColor.Fprintf(w, "  updated %s", s.UpdatedAt.Local().Format(time.Kitchen))
	}
	if s.Stale {
		pinColor.Fprint(w, "  (cached)")
	}
	fmt.Fprintln(w)

	if s.Error != "" {
		errorColor.Fprintf(w, "❌ %s\n", s.Error)
	}

	headerColor.Fprintln(w, "\nRepositories")
	if s.RepositoriesError != "" && s.RepositoriesError != s.Error {
		errorColor.Fprintf(w, "  %s\n", s.RepositoriesError)
	}
	renderRepositories(w, s.Repositories, d.Pinned)

	if d.ShowHeatmap {
		headerColor.Fprintln(w, "\nContributions")
		if s.HeatmapError != "" {
			errorColor.Fprintf(w, "  %s\n", s.HeatmapError)
		}
		renderHeatmap(w, s.Heatmap, s.HeatmapRange)
	}

	headerColor.Fprintln(w, "\nActivity")
	if s.ActivityError != "" {
		errorColor.Fprintf(w, "  %s\n", s.ActivityError)
	}
	for _, e := range s.Activity {
		fmt.Fprintf(w, "  %s  %-12s %s\n", dimColor.Sprint(ago(e.Timestamp)), e.Actor, e.Title)
	}

	headerColor.Fprintln(w, "\nCommits")
	if s.CommitError != "" {
		errorColor.Fprintf(w, "  %s\n", s.CommitError)
	}
	for _, c := range s.Commits {
		fmt.Fprintf(w, "  %s  %s  %s %s\n", dimColor.Sprint(ago(c.Timestamp)), shortSHA(c.SHA), c.Message, dimColor.Sprint(c.Repository))
	}
}

func renderRepositories(w io.Writer, repos []models.Repository, pinned []string) {
	if len(repos) == 0 {
		dimColor.Fprintln(w, "  none")
		return
	}
	for _, r := range repos {
		marker := "  "
		if slices.Contains(pinned, r.FullName) {
			marker = pinColor.Sprint("★ ")
		}
		fmt.Fprintf(w, "%s%-40s ★%-5d issues %-4d prs %-4d %s\n",
			marker, r.FullName, r.StarsCount, r.OpenIssuesCount, r.OpenPRsCount, dimColor.Sprint(ago(r.PushedAt)))
	}
}

// renderHeatmap draws one row per weekday and one column per week.
func renderHeatmap(w io.Writer, cells []models.HeatmapCell, r models.DateRange) {
	if r.From.IsZero() {
		dimColor.Fprintln(w, "  no data")
		return
	}
	counts := make(map[string]int, len(cells))
	for _, c := range cells {
		counts[c.Date.Format(time.DateOnly)] = c.Count
	}
	weeks := int(r.To.Sub(r.From).Hours()/24)/7 + 1

	for day := range 7 {
		var row strings.Builder
		row.WriteString("  ")
		for week := range weeks {
			date := r.From.AddDate(0, 0, week*7+day)
			row.WriteString(shade(counts[date.Format(time.DateOnly)]))
		}
		fmt.Fprintln(w, row.String())
	}
}

func shade(count int) string {
	switch {
	case count <= 0:
		return heatmapShades[0]
	case count < 3:
		return heatmapShades[1]
	case count < 6:
		return heatmapShades[2]
	case count < 10:
		return heatmapShades[3]
	default:
		return heatmapShades[4]
	}
}

func renderDetail(w io.Writer, d detail.Detail) {
	headerColor.Fprintln(w, d.FullName)
	if d.Error != "" {
		errorColor.Fprintf(w, "❌ %s\n", d.Error)
	}

	section := func(c detail.Category, title string, n int) bool {
		headerColor.Fprintf(w, "\n%s (%d)\n", title, n)
		if msg, ok := d.CategoryErrors[c]; ok {
			errorColor.Fprintf(w, "  %s\n", msg)
		}
		return n > 0
	}

	if section(detail.PullRequests, "Pull requests", len(d.PullRequests)) {
		for _, pr := range d.PullRequests {
			fmt.Fprintf(w, "  #%-5d %s %s\n", pr.Number, pr.Title, dimColor.Sprint(pr.Author))
		}
	}
	if section(detail.Issues, "Issues", len(d.Issues)) {
		for _, i := range d.Issues {
			fmt.Fprintf(w, "  #%-5d %s %s\n", i.Number, i.Title, dimColor.Sprint(i.Author))
		}
	}
	if section(detail.Releases, "Releases", len(d.Releases)) {
		for _, r := range d.Releases {
			fmt.Fprintf(w, "  %-12s %s %s\n", r.TagName, r.Name, dimColor.Sprint(ago(r.PublishedAt)))
		}
	}
	if section(detail.WorkflowRuns, "Workflow runs", len(d.WorkflowRuns)) {
		for _, run := range d.WorkflowRuns {
			status := run.Conclusion
			if status == "" {
				status = run.Status
			}
			fmt.Fprintf(w, "  %-20s %-10s %s\n", run.Name, status, dimColor.Sprint(run.Branch))
		}
	}
	if section(detail.Commits, "Commits", len(d.Commits.Commits)) {
		for _, c := range d.Commits.Commits {
			fmt.Fprintf(w, "  %s %s %s\n", shortSHA(c.SHA), c.Message, dimColor.Sprint(c.Author))
		}
	}
	if section(detail.Discussions, "Discussions", len(d.Discussions)) {
		for _, disc := range d.Discussions {
			fmt.Fprintf(w, "  #%-5d %s %s\n", disc.Number, disc.Title, dimColor.Sprint(disc.Category))
		}
	}
	if section(detail.Tags, "Tags", len(d.Tags)) {
		for _, t := range d.Tags {
			fmt.Fprintf(w, "  %-20s %s\n", t.Name, shortSHA(t.SHA))
		}
	}
	if section(detail.Branches, "Branches", len(d.Branches)) {
		for _, b := range d.Branches {
			fmt.Fprintf(w, "  %-30s %s\n", b.Name, shortSHA(b.SHA))
		}
	}
	if section(detail.Contributors, "Contributors", len(d.Contributors)) {
		for _, c := range d.Contributors {
			fmt.Fprintf(w, "  %-20s %d\n", c.Login, c.Contributions)
		}
	}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
