package domain

// HealthStatus é o status derivado da taxa de erros recente.
type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthFair      HealthStatus = "fair"
	HealthPoor      HealthStatus = "poor"
)

// SystemHealth resume a saúde a partir do log de erros.
// ErrorRate é medido em erros por minuto.
type SystemHealth struct {
	Status    HealthStatus `json:"status"`
	ErrorRate float64      `json:"errorRate"`
	LastError *ErrorRecord `json:"lastError"`
}

type ErrorSummary struct {
	TotalErrors      int              `json:"totalErrors"`
	RecentErrors     int              `json:"recentErrors"`
	ErrorsByCategory map[Category]int `json:"errorsByCategory"`
}

type ErrorReport struct {
	Summary      ErrorSummary  `json:"summary"`
	RecentErrors []ErrorRecord `json:"recentErrors"`
	SystemHealth SystemHealth  `json:"systemHealth"`
}
