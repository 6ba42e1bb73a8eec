package fakeapi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/msomdec/startup-scout/internal/domain"
)

const globalTopN = 10

type facetCount struct {
	value string
	count int
}

// countBy tallies key over list, largest first, ties broken by first
// appearance.
func countBy(list []domain.StartupSummary, key func(domain.StartupSummary) string) []facetCount {
	index := map[string]int{}
	var out []facetCount
	for _, st := range list {
		k := key(st)
		if i, ok := index[k]; ok {
			out[i].count++
			continue
		}
		index[k] = len(out)
		out = append(out, facetCount{value: k, count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}

func industryCounts(fc []facetCount) []domain.IndustryCount {
	out := make([]domain.IndustryCount, len(fc))
	for i, c := range fc {
		out[i] = domain.IndustryCount{Industry: c.value, Count: c.count}
	}
	return out
}

func locationCounts(fc []facetCount) []domain.LocationCount {
	out := make([]domain.LocationCount, len(fc))
	for i, c := range fc {
		out[i] = domain.LocationCount{Location: c.value, Count: c.count}
	}
	return out
}

func stageCounts(fc []facetCount) []domain.StageCount {
	out := make([]domain.StageCount, len(fc))
	for i, c := range fc {
		out[i] = domain.StageCount{Stage: c.value, Count: c.count}
	}
	return out
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	s.mu.Lock()
	var watched []domain.StartupSummary
	for _, rec := range s.watchlist {
		if rec.userID != userID {
			continue
		}
		if st, ok := s.startupLocked(rec.startupID); ok {
			watched = append(watched, st)
		}
	}
	noted := map[int64]struct{}{}
	for _, rec := range s.notes {
		if rec.userID == userID {
			noted[rec.startupID] = struct{}{}
		}
	}
	all := append([]domain.StartupSummary(nil), s.startups...)
	s.mu.Unlock()

	globalIndustries := countBy(all, func(st domain.StartupSummary) string { return st.Industry })
	globalLocations := countBy(all, func(st domain.StartupSummary) string { return st.Location })

	writeJSON(w, http.StatusOK, domain.Analytics{
		UserStats: domain.UserStats{
			WatchlistCount:         len(watched),
			NotesCount:             len(noted),
			TotalStartupsAvailable: len(all),
		},
		UserAnalytics: domain.UserAnalytics{
			Industries: industryCounts(countBy(watched, func(st domain.StartupSummary) string { return st.Industry })),
			Locations:  locationCounts(countBy(watched, func(st domain.StartupSummary) string { return st.Location })),
			Stages:     stageCounts(countBy(watched, func(st domain.StartupSummary) string { return string(st.Stage) })),
		},
		GlobalAnalytics: domain.GlobalAnalytics{
			Industries: industryCounts(globalIndustries[:min(globalTopN, len(globalIndustries))]),
			Locations:  locationCounts(globalLocations[:min(globalTopN, len(globalLocations))]),
		},
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	user, _ := s.auth.userByID(userID)

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{
		"Startup Name", "Industry", "Location", "Stage", "Website",
		"Description", "Tags", "Added to Watchlist",
	})

	s.mu.Lock()
	for _, rec := range s.watchlist {
		if rec.userID != userID {
			continue
		}
		st, ok := s.startupLocked(rec.startupID)
		if !ok {
			continue
		}
		website := ""
		if st.Website != nil {
			website = *st.Website
		}
		_ = cw.Write([]string{
			st.Name, st.Industry, st.Location, string(st.Stage), website,
			st.Description, strings.Join(st.TagList, ", "),
			rec.createdAt.Format("2006-01-02 15:04:05"),
		})
	}
	s.mu.Unlock()

	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Error("write csv export", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="watchlist_%s_%d.csv"`, user.Username, userID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
