// Package view renders the dashboard pages and the fragments patched in
// over SSE. Components are written in the .templ files next to this one;
// run `templ generate` after editing them.
package view

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/msomdec/startup-scout/internal/domain"
)

// Element ids targeted by SSE patches.
const (
	CatalogID         = "catalog"
	ResultsID         = "startup-results"
	WatchlistErrorsID = "watchlist-errors"
)

// WatchButtonID is the id of the watch toggle for a startup.
func WatchButtonID(startupID int64) string {
	return "watch-" + strconv.FormatInt(startupID, 10)
}

// WatchlistRowID is the id of a startup's row on the watchlist page.
func WatchlistRowID(startupID int64) string {
	return "watchlist-row-" + strconv.FormatInt(startupID, 10)
}

// StageLabel turns a stage value such as "series_a" into "Series A".
func StageLabel(stage string) string {
	switch domain.Stage(stage) {
	case domain.StageMVP:
		return "MVP"
	case domain.StageIPO:
		return "IPO"
	}
	words := strings.Fields(strings.ReplaceAll(stage, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var orderings = []struct{ value, label string }{
	{"-created_at", "Newest"},
	{"created_at", "Oldest"},
	{"name", "Name A-Z"},
	{"-name", "Name Z-A"},
	{"-updated_at", "Recently updated"},
}

func filterSignals(f domain.FilterState) string {
	b, err := json.Marshal(map[string]string{
		"q":        f.Query,
		"industry": f.Industry,
		"location": f.Location,
		"stage":    f.Stage,
		"ordering": f.Ordering,
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}

func optionLabel(value string, label func(string) string) string {
	if label == nil {
		return value
	}
	return label(value)
}

// watchAction is the Datastar action toggling a startup on the watchlist.
func watchAction(method string, startupID int64, query string) string {
	return fmt.Sprintf("%s('/watchlist/%d%s')", method, startupID, query)
}

func pageAction(page int) string {
	return fmt.Sprintf("@get('/startups/search?page=%d')", page)
}

type labelCount struct {
	label string
	count int
}

func industryCounts(in []domain.IndustryCount) []labelCount {
	out := make([]labelCount, 0, len(in))
	for _, c := range in {
		out = append(out, labelCount{c.Industry, c.Count})
	}
	return out
}

func stageCounts(in []domain.StageCount) []labelCount {
	out := make([]labelCount, 0, len(in))
	for _, c := range in {
		out = append(out, labelCount{StageLabel(c.Stage), c.Count})
	}
	return out
}

func locationCounts(in []domain.LocationCount) []labelCount {
	out := make([]labelCount, 0, len(in))
	for _, c := range in {
		out = append(out, labelCount{c.Location, c.Count})
	}
	return out
}
