package domain

// Evaluation é o payload de sucesso do orquestrador.
type Evaluation struct {
	Success      bool      `json:"success"`
	Keyword      string    `json:"keyword"`
	Found        bool      `json:"found"`
	Position     *int      `json:"position"`
	Confidence   float64   `json:"confidence"`
	MatchType    MatchType `json:"matchType"`
	MatchedWords int       `json:"matchedWords"`
	TotalWords   int       `json:"totalWords"`
	TotalResults int       `json:"totalResults"`
}
