package domain

// ResultType classifica um item da página de resultados.
type ResultType string

const (
	ResultOrganic ResultType = "organic"
	ResultOther   ResultType = "other"
)

// ResultRecord é um item extraído da SERP, em ordem de página.
//
// Position é 1-based, atribuída pela extração e imutável depois disso.
type ResultRecord struct {
	Position    int        `json:"position"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Description string     `json:"description"`
	Type        ResultType `json:"type"`
}

// SearchText é o texto usado no casamento: título + descrição.
func (r ResultRecord) SearchText() string {
	return r.Title + " " + r.Description
}
