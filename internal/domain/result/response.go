package result

// Response is the outcome of one search request as served to clients and
// stored in the snapshot cache.
type Response struct {
	ID                  string                       `json:"id"`
	Query               string                       `json:"query"`
	Page                int                          `json:"page"`
	NumberOfResults     int64                        `json:"number_of_results"`
	Results             []*Result                    `json:"results"`
	Answers             []Answer                     `json:"answers"`
	Corrections         []string                     `json:"corrections"`
	Suggestions         []string                     `json:"suggestions"`
	Infoboxes           []*Infobox                   `json:"infoboxes"`
	UnresponsiveEngines []UnresponsiveEngine         `json:"unresponsive_engines"`
	Timings             []Timing                     `json:"timings,omitempty"`
	EngineData          map[string]map[string]string `json:"engine_data,omitempty"`
	Paging              bool                         `json:"paging"`
	RedirectURL         string                       `json:"redirect_url,omitempty"`
	Cached              bool                         `json:"cached"`
}
