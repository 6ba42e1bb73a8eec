package domain

// Stage is a startup's lifecycle stage.
type Stage string

const (
	StageIdea    Stage = "idea"
	StageMVP     Stage = "mvp"
	StageSeed    Stage = "seed"
	StageSeriesA Stage = "series_a"
	StageSeriesB Stage = "series_b"
	StageSeriesC Stage = "series_c"
	StageGrowth  Stage = "growth"
	StageIPO     Stage = "ipo"
)

// Stages returns every lifecycle stage in order.
func Stages() []Stage {
	return []Stage{StageIdea, StageMVP, StageSeed, StageSeriesA, StageSeriesB, StageSeriesC, StageGrowth, StageIPO}
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	for _, st := range Stages() {
		if s == st {
			return true
		}
	}
	return false
}

// StartupSummary is the read-only projection of a backend startup record.
type StartupSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Website     *string   `json:"website"`
	Location    string    `json:"location"`
	Industry    string    `json:"industry"`
	Stage       Stage     `json:"stage"`
	Description string    `json:"description"`
	Tags        string    `json:"tags"`
	TagList     []string  `json:"tag_list"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// Page is the paginated list envelope used by list endpoints.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// FilterOptions holds the facet values offered by the filter controls.
type FilterOptions struct {
	Industries []string `json:"industries"`
	Locations  []string `json:"locations"`
	Stages     []string `json:"stages"`
}
