package application

import (
	"sort"
	"strings"
	"unicode/utf8"

	"serp-rank/rank/domain"
)

// Selection define qual resultado qualificado vira o veredito.
type Selection string

const (
	// SelectFirst: o primeiro resultado qualificado (menor posição) vence.
	SelectFirst Selection = "first"
	// SelectBest: vence a maior confiança; empate fica com a menor posição.
	SelectBest Selection = "best"
)

// MatcherConfig guarda os limiares de política do casamento.
// Campos zerados assumem os valores de DefaultMatcherConfig.
type MatcherConfig struct {
	// MatchThreshold: confiança mínima (exclusiva) para um resultado casar.
	MatchThreshold float64
	// TokenThreshold: similaridade mínima (exclusiva) para um token casar.
	TokenThreshold float64
	// FuzzyThreshold: razão mínima (exclusiva) de sobreposição de caracteres.
	FuzzyThreshold float64
	Selection      Selection
}

func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		MatchThreshold: 0.25,
		TokenThreshold: 0.6,
		FuzzyThreshold: 0.7,
		Selection:      SelectFirst,
	}
}

const (
	containmentSimilarity = 0.9
	stemSimilarity        = 0.8
	fuzzyWeight           = 0.7

	coverageWeight = 0.6
	qualityWeight  = 0.3

	minStemLen = 3
)

// ordem fixa; stem() escolhe o sufixo mais longo que couber.
var stemSuffixes = []string{"ing", "ed", "er", "est", "ly", "es", "s"}

// KeywordMatcher é o contrato consumido pelo Orchestrator.
type KeywordMatcher interface {
	Match(keyword string, results []domain.ResultRecord) domain.MatchVerdict
}

// Matcher casa uma keyword contra os resultados extraídos combinando
// contenção, stemming e similaridade de caracteres.
type Matcher struct {
	Config MatcherConfig
}

func NewMatcher(cfg MatcherConfig) Matcher {
	def := DefaultMatcherConfig()
	if cfg.MatchThreshold <= 0 {
		cfg.MatchThreshold = def.MatchThreshold
	}
	if cfg.TokenThreshold <= 0 {
		cfg.TokenThreshold = def.TokenThreshold
	}
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = def.FuzzyThreshold
	}
	if cfg.Selection == "" {
		cfg.Selection = def.Selection
	}
	return Matcher{Config: cfg}
}

// Match nunca falha: keyword vazia ou resultados vazios viram "não encontrado".
func (m Matcher) Match(keyword string, results []domain.ResultRecord) domain.MatchVerdict {
	if c := m.Config; c.MatchThreshold <= 0 || c.TokenThreshold <= 0 || c.FuzzyThreshold <= 0 || c.Selection == "" {
		m = NewMatcher(c)
	}

	kw := tokenize(keyword)
	if len(kw) == 0 || len(results) == 0 {
		return domain.NotFound(len(kw))
	}

	ordered := make([]domain.ResultRecord, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	var best *domain.MatchVerdict
	for _, r := range ordered {
		v, ok := m.scoreResult(kw, r)
		if !ok {
			continue
		}
		if m.Config.Selection != SelectBest {
			return v
		}
		if best == nil || v.Confidence > best.Confidence {
			best = &v
		}
	}
	if best != nil {
		return *best
	}
	return domain.NotFound(len(kw))
}

func (m Matcher) scoreResult(kw []string, r domain.ResultRecord) (domain.MatchVerdict, bool) {
	tokens := tokenize(r.SearchText())
	if len(tokens) == 0 {
		return domain.MatchVerdict{}, false
	}

	matched := 0
	totalSim := 0.0
	strongest := domain.MatchNone

	if strings.Contains(strings.Join(tokens, " "), strings.Join(kw, " ")) {
		// frase inteira presente: todos os tokens casam por contenção
		matched = len(kw)
		totalSim = containmentSimilarity * float64(len(kw))
		strongest = domain.MatchExact
	} else {
		for _, k := range kw {
			for _, t := range tokens {
				sim, kind := m.similarity(k, t)
				if sim > m.Config.TokenThreshold {
					matched++
					totalSim += sim
					if kind.Stronger(strongest) {
						strongest = kind
					}
					break
				}
			}
		}
	}

	if matched == 0 {
		return domain.MatchVerdict{}, false
	}

	base := float64(matched) / float64(len(kw))
	avg := totalSim / float64(matched)
	confidence := clamp01(base*coverageWeight + avg*qualityWeight)
	if confidence <= m.Config.MatchThreshold {
		return domain.MatchVerdict{}, false
	}

	if strongest == domain.MatchExact && matched < len(kw) {
		strongest = domain.MatchPartial
	}

	pos := r.Position
	return domain.MatchVerdict{
		Found:        true,
		Position:     &pos,
		MatchType:    strongest,
		Confidence:   confidence,
		MatchedWords: matched,
		TotalWords:   len(kw),
	}, true
}

// similarity pontua um par de tokens pela primeira estratégia que casar.
func (m Matcher) similarity(a, b string) (float64, domain.MatchType) {
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return containmentSimilarity, domain.MatchExact
	}
	if sa, sb := stem(a), stem(b); sa == sb {
		return stemSimilarity, domain.MatchStem
	}
	if ratio := charOverlap(a, b); ratio > m.Config.FuzzyThreshold {
		return ratio * fuzzyWeight, domain.MatchFuzzy
	}
	return 0, domain.MatchNone
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// stem remove o sufixo mais longo de stemSuffixes, desde que sobrem ao menos
// minStemLen letras.
func stem(w string) string {
	best := ""
	for _, suf := range stemSuffixes {
		if len(suf) <= len(best) || !strings.HasSuffix(w, suf) {
			continue
		}
		if utf8.RuneCountInString(w)-utf8.RuneCountInString(suf) < minStemLen {
			continue
		}
		best = suf
	}
	return strings.TrimSuffix(w, best)
}

// charOverlap é a fração de posições com o mesmo caractere, sobre o
// comprimento do token mais longo.
func charOverlap(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longer := max(len(ra), len(rb))
	if longer == 0 {
		return 0
	}
	same := 0
	for i := range min(len(ra), len(rb)) {
		if ra[i] == rb[i] {
			same++
		}
	}
	return float64(same) / float64(longer)
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
