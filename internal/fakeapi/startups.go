package fakeapi

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/msomdec/startup-scout/internal/domain"
)

var (
	seedNames = []string{
		"TechFlow", "DataVault", "CloudSync", "AI Insights", "BlockChain Pro",
		"CyberGuard", "DataStream", "CloudTech", "AI Solutions", "BlockChain Hub",
		"TechNova", "DataCore", "CloudBase", "AI Dynamics", "CryptoFlow",
		"TechEdge", "DataPulse", "CloudForce", "AI Vision", "BlockTech",
		"TechWave", "DataFlow", "CloudNet", "AI Core", "CryptoCore",
		"TechBoost", "DataVibe", "CloudRise", "AI Spark", "BlockRise",
		"TechFlow Pro", "DataSync", "CloudBoost", "AI Flow", "CryptoSync",
		"TechCore", "DataRise", "CloudEdge", "AI Boost", "BlockFlow",
		"TechPulse", "DataBoost", "CloudPulse", "AI Edge", "CryptoEdge",
		"TechRise", "DataEdge", "CloudCore", "AI Pulse", "BlockPulse",
	}
	seedIndustries = []string{
		"Technology", "Healthcare", "Fintech", "E-commerce", "Education",
		"Transportation", "Energy", "Real Estate", "Entertainment", "Food & Beverage",
	}
	seedLocations = []string{
		"San Francisco, CA", "New York, NY", "Austin, TX", "Seattle, WA", "Boston, MA",
		"London, UK", "Berlin, Germany", "Toronto, Canada", "Singapore",
	}
	seedDescriptions = []string{
		"Revolutionary AI-powered platform transforming the way businesses operate.",
		"Cutting-edge technology solution for modern enterprises.",
		"Innovative approach to solving complex industry challenges.",
		"Next-generation platform with advanced machine learning capabilities.",
		"Disruptive technology reshaping traditional business models.",
	}
	seedTags = []string{
		"ai, machine learning", "saas, b2b", "blockchain, web3", "mobile, consumer",
		"analytics, data", "cloud, infrastructure",
	}
)

// SeedStartups returns n deterministic sample startups, the newest created
// at base.
func SeedStartups(n int, base time.Time) []domain.StartupSummary {
	stages := domain.Stages()
	out := make([]domain.StartupSummary, 0, n)
	for i := range n {
		name := seedNames[i%len(seedNames)]
		if i >= len(seedNames) {
			name = fmt.Sprintf("%s %d", name, i/len(seedNames)+1)
		}
		created := base.Add(-time.Duration(n-i) * time.Hour).UTC()
		tags := seedTags[i%len(seedTags)]
		var website *string
		if i%3 != 0 {
			site := "https://" + strings.ToLower(strings.ReplaceAll(name, " ", "")) + ".example.com"
			website = &site
		}
		out = append(out, domain.StartupSummary{
			ID:          int64(i + 1),
			Name:        name,
			Website:     website,
			Location:    seedLocations[i%len(seedLocations)],
			Industry:    seedIndustries[i%len(seedIndustries)],
			Stage:       stages[i%len(stages)],
			Description: seedDescriptions[i%len(seedDescriptions)],
			Tags:        tags,
			TagList:     splitTags(tags),
			CreatedAt:   domain.Timestamp{Time: created},
			UpdatedAt:   domain.Timestamp{Time: created},
		})
	}
	return out
}

func splitTags(tags string) []string {
	list := []string{}
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			list = append(list, t)
		}
	}
	return list
}

func (s *Server) handleListStartups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	matched := make([]domain.StartupSummary, 0, len(s.startups))
	for _, st := range s.startups {
		if matchesStartup(st, q) {
			matched = append(matched, st)
		}
	}
	s.mu.Unlock()

	if err := orderStartups(matched, q.Get("ordering")); err != nil {
		writeFieldErrors(w, map[string][]string{"ordering": {err.Error()}})
		return
	}
	writePage(w, r, matched)
}

func matchesStartup(st domain.StartupSummary, q url.Values) bool {
	if v := q.Get("industry"); v != "" && st.Industry != v {
		return false
	}
	if v := q.Get("location"); v != "" && st.Location != v {
		return false
	}
	if v := q.Get("stage"); v != "" && string(st.Stage) != v {
		return false
	}
	if term := strings.ToLower(q.Get("q")); term != "" {
		return strings.Contains(strings.ToLower(st.Name), term) ||
			strings.Contains(strings.ToLower(st.Description), term) ||
			strings.Contains(strings.ToLower(st.Tags), term)
	}
	return true
}

func orderStartups(list []domain.StartupSummary, ordering string) error {
	if ordering == "" {
		ordering = domain.DefaultOrdering
	}
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")

	var less func(a, b domain.StartupSummary) bool
	switch field {
	case "name":
		less = func(a, b domain.StartupSummary) bool { return a.Name < b.Name }
	case "created_at":
		less = func(a, b domain.StartupSummary) bool { return a.CreatedAt.Before(b.CreatedAt.Time) }
	case "updated_at":
		less = func(a, b domain.StartupSummary) bool { return a.UpdatedAt.Before(b.UpdatedAt.Time) }
	default:
		return fmt.Errorf("unsupported ordering %q", ordering)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if desc {
			return less(list[j], list[i])
		}
		return less(list[i], list[j])
	})
	return nil
}

func (s *Server) handleGetStartup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	st, ok := s.startup(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) startup(id int64) (domain.StartupSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startupLocked(id)
}

func (s *Server) startupLocked(id int64) (domain.StartupSummary, bool) {
	for _, st := range s.startups {
		if st.ID == id {
			return st, true
		}
	}
	return domain.StartupSummary{}, false
}

// writePage writes one page of items in the paginated list envelope, with
// absolute next/previous links.
func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeDetail(w, http.StatusNotFound, "Invalid page.")
			return
		}
		page = n
	}
	pages := max(1, (len(items)+domain.PageSize-1)/domain.PageSize)
	if page > pages {
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}

	start := (page - 1) * domain.PageSize
	end := min(start+domain.PageSize, len(items))
	out := domain.Page[T]{
		Count:   len(items),
		Results: append(make([]T, 0, end-start), items[start:end]...),
	}
	if page < pages {
		next := pageURL(r, page+1)
		out.Next = &next
	}
	if page > 1 {
		prev := pageURL(r, page-1)
		out.Previous = &prev
	}
	writeJSON(w, http.StatusOK, out)
}

func pageURL(r *http.Request, page int) string {
	q := r.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}
