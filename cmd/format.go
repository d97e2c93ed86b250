package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/fingertips/pkg/catalog"
	"github.com/rubiojr/fingertips/pkg/download"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("33"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("32"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	summaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("32")).
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("32")).
			Padding(0, 1)

	titleCase = cases.Title(language.English)
)

// formatNumber formats a number with K/M suffixes for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	} else {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// formatTime formats a time relative to now or as an absolute date
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	if diff < 24*time.Hour {
		if diff < time.Hour {
			minutes := int(diff.Minutes())
			if minutes < 1 {
				return "just now"
			}
			return fmt.Sprintf("%d minutes ago", minutes)
		}
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	}

	if diff < 7*24*time.Hour {
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	}

	if t.Year() == now.Year() {
		return t.Format("Jan 2, 15:04")
	}
	return t.Format("Jan 2, 2006")
}

// formatDuration formats a short duration for batch summaries
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// statusLabel renders an outcome status with its colour
func statusLabel(s download.Status) string {
	label := titleCase.String(string(s))
	switch s {
	case download.StatusSaved, download.StatusKept:
		return okStyle.Render(label)
	case download.StatusEmpty:
		return warnStyle.Render(label)
	case download.StatusFailed:
		return errStyle.Render(label)
	}
	return label
}

func printAreaTypes(cat *catalog.Catalog, areaTypes []catalog.AreaType) {
	fmt.Println(titleStyle.Render("Area types"))
	fmt.Println()
	for _, at := range areaTypes {
		n := len(cat.IndicatorIDs(at.ID))
		fmt.Printf("  %s  %s %s\n",
			idStyle.Render(fmt.Sprintf("%5s", at.ID)),
			at.Label(),
			metaStyle.Render(fmt.Sprintf("(%s, %s indicators)", at.Name, formatNumber(n))))
	}
}

func printGroups(at catalog.AreaType, groups []catalog.Group) {
	fmt.Println(titleStyle.Render("Indicators for " + at.Label()))
	total := 0
	for _, g := range groups {
		fmt.Println()
		fmt.Println(headerStyle.Render(g.Source))
		for _, ind := range g.Indicators {
			fmt.Printf("  %s  %s\n", idStyle.Render(fmt.Sprintf("%6s", ind.ID)), catalog.CleanName(ind.Name))
		}
		total += len(g.Indicators)
	}
	fmt.Println()
	fmt.Println(metaStyle.Render(fmt.Sprintf("%d indicators in %d sources", total, len(groups))))
}

func printOutcome(o download.Outcome) {
	line := fmt.Sprintf("  %s  %s %s", idStyle.Render(fmt.Sprintf("%6s", o.IndicatorID)), statusLabel(o.Status), catalog.CleanName(o.Name))
	switch {
	case o.Error != "":
		line += " " + errStyle.Render(o.Error)
	case o.Path != "":
		line += " " + metaStyle.Render(fmt.Sprintf("%s rows -> %s", formatNumber(o.Rows), o.Path))
	case o.Status == download.StatusKept:
		line += " " + metaStyle.Render(fmt.Sprintf("%s rows", formatNumber(o.Rows)))
	}
	if o.LatestPeriod != "" {
		line += " " + metaStyle.Render("latest "+o.LatestPeriod)
	}
	fmt.Println(line)
}

func printReport(r *download.Report) {
	for _, o := range r.Outcomes {
		printOutcome(o)
	}
	if r.CombinedPath != "" {
		fmt.Printf("\n  Combined %s rows -> %s\n", formatNumber(r.CombinedRows), r.CombinedPath)
	}
	if r.CombinedError != "" {
		fmt.Printf("\n  %s\n", errStyle.Render(r.CombinedError))
	}

	saved := r.Count(download.StatusSaved) + r.Count(download.StatusKept)
	summary := fmt.Sprintf("%d saved, %d empty, %d failed in %s",
		saved, r.Count(download.StatusEmpty), r.Count(download.StatusFailed), formatDuration(r.Duration()))
	fmt.Println(summaryStyle.Render(summary))
}
