package domain

// MatchType indica a estratégia mais forte que contribuiu para um casamento.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchPartial MatchType = "partial"
	MatchStem    MatchType = "stem"
	MatchFuzzy   MatchType = "fuzzy"
	MatchNone    MatchType = "none"
)

func (m MatchType) strength() int {
	switch m {
	case MatchExact:
		return 4
	case MatchPartial:
		return 3
	case MatchStem:
		return 2
	case MatchFuzzy:
		return 1
	default:
		return 0
	}
}

// Stronger reporta se m vence o:  exact > partial > stem > fuzzy > none.
func (m MatchType) Stronger(o MatchType) bool { return m.strength() > o.strength() }

// MatchVerdict é o veredito único de uma avaliação (keyword, resultados).
//
// Position é nil se e somente se Found for false.
type MatchVerdict struct {
	Found        bool      `json:"found"`
	Position     *int      `json:"position"`
	MatchType    MatchType `json:"matchType"`
	Confidence   float64   `json:"confidence"`
	MatchedWords int       `json:"matchedWords"`
	TotalWords   int       `json:"totalWords"`
}

// NotFound monta o veredito negativo para uma keyword com totalWords tokens.
func NotFound(totalWords int) MatchVerdict {
	return MatchVerdict{MatchType: MatchNone, TotalWords: totalWords}
}

// PositionOr devolve a posição do veredito ou def quando não encontrado.
func (v MatchVerdict) PositionOr(def int) int {
	if v.Position == nil {
		return def
	}
	return *v.Position
}
