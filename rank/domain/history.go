package domain

// HistoryResults é o resumo do veredito guardado em cada entrada.
type HistoryResults struct {
	Found        bool      `json:"found"`
	Position     *int      `json:"position"`
	MatchType    MatchType `json:"matchType"`
	Confidence   float64   `json:"confidence"`
	TotalResults int       `json:"totalResults"`
}

// HistoryEntry é uma avaliação concluída. Imutável; pertence ao log de histórico.
type HistoryEntry struct {
	ID         string         `json:"id"`
	Keyword    string         `json:"keyword"`
	Timestamp  int64          `json:"timestamp"`
	SearchDate string         `json:"searchDate"`
	Results    HistoryResults `json:"results"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Settings controla se SaveResult grava algo. Ambos começam true.
type Settings struct {
	Enabled  bool `json:"enabled"`
	AutoSave bool `json:"autoSave"`
}

func DefaultSettings() Settings { return Settings{Enabled: true, AutoSave: true} }

// SettingsUpdate aplica só os campos informados.
type SettingsUpdate struct {
	Enabled  *bool `json:"enabled,omitempty"`
	AutoSave *bool `json:"autoSave,omitempty"`
}

// HistoryQuery filtra o histórico. Limit <= 0 usa o padrão (20).
type HistoryQuery struct {
	Limit     int    `json:"limit,omitempty"`
	Keyword   string `json:"keyword,omitempty"`
	FoundOnly bool   `json:"foundOnly,omitempty"`
}

type HistoryPage struct {
	History  []HistoryEntry `json:"history"`
	Total    int            `json:"total"`
	Filtered int            `json:"filtered"`
}

type PositionDistribution struct {
	TopThree  int `json:"topThree"`
	FirstPage int `json:"firstPage"`
	NotFound  int `json:"notFound"`
}

type HistoryStats struct {
	TotalSearches        int                  `json:"totalSearches"`
	SuccessfulSearches   int                  `json:"successfulSearches"`
	AveragePosition      float64              `json:"averagePosition"`
	TopKeywords          map[string]int       `json:"topKeywords"`
	PositionDistribution PositionDistribution `json:"positionDistribution"`
}

// Clone devolve uma cópia que não compartilha Position nem Metadata com e.
func (e HistoryEntry) Clone() HistoryEntry {
	if e.Results.Position != nil {
		p := *e.Results.Position
		e.Results.Position = &p
	}
	e.Metadata = cloneMap(e.Metadata)
	return e
}
