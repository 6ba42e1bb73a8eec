package domain

// Analytics is the payload of GET /analytics/dashboard/.
type Analytics struct {
	UserStats       UserStats       `json:"user_stats"`
	UserAnalytics   UserAnalytics   `json:"user_analytics"`
	GlobalAnalytics GlobalAnalytics `json:"global_analytics"`
}

type UserStats struct {
	WatchlistCount         int `json:"watchlist_count"`
	NotesCount             int `json:"notes_count"`
	TotalStartupsAvailable int `json:"total_startups_available"`
}

// UserAnalytics breaks the user's watchlist down by facet, largest first.
type UserAnalytics struct {
	Industries []IndustryCount `json:"industries"`
	Locations  []LocationCount `json:"locations"`
	Stages     []StageCount    `json:"stages"`
}

// GlobalAnalytics holds the ten most common industries and locations across
// the whole catalog. It is the authoritative source of facet values.
type GlobalAnalytics struct {
	Industries []IndustryCount `json:"industries"`
	Locations  []LocationCount `json:"locations"`
}

type IndustryCount struct {
	Industry string `json:"industry"`
	Count    int    `json:"count"`
}

type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}
