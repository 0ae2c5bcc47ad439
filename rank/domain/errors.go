package domain

import (
	"errors"
	"fmt"
)

// Category é a taxonomia de falhas do coordenador de resiliência.
type Category string

const (
	CategoryNetwork      Category = "network"
	CategoryDOM          Category = "dom"
	CategoryParsing      Category = "parsing"
	CategoryValidation   Category = "validation"
	CategoryTimeout      Category = "timeout"
	CategoryBotDetection Category = "bot_detection"
	CategoryUnknown      Category = "unknown"
)

// Categories lista todas as categorias em ordem estável (relatórios, métricas).
var Categories = []Category{
	CategoryNetwork,
	CategoryDOM,
	CategoryParsing,
	CategoryValidation,
	CategoryTimeout,
	CategoryBotDetection,
	CategoryUnknown,
}

// Transient reporta se a categoria costuma se resolver com nova tentativa.
func (c Category) Transient() bool {
	return c == CategoryNetwork || c == CategoryTimeout || c == CategoryBotDetection
}

var (
	ErrEmptyKeyword = errors.New("invalid keyword: keyword is required")
	ErrNoPage       = errors.New("no page available for extraction")
	ErrNoResults    = errors.New("no result elements found in page")
)

// ErrorRecord é uma falha capturada pelo coordenador. Imutável após criada.
type ErrorRecord struct {
	ID        string         `json:"id"`
	Operation string         `json:"operation"`
	Message   string         `json:"message"`
	Timestamp int64          `json:"timestamp"`
	Category  Category       `json:"category"`
	Context   map[string]any `json:"context,omitempty"`
}

// Clone devolve uma cópia com Context próprio.
func (r ErrorRecord) Clone() ErrorRecord {
	r.Context = cloneMap(r.Context)
	return r
}

// cloneMap copia o primeiro nível; os valores guardados são escalares.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Failure é a forma estruturada (e visível ao chamador) de uma falha.
// Nunca carrega o erro bruto, apenas a mensagem.
type Failure struct {
	Success       bool     `json:"success"`
	Message       string   `json:"error"`
	ErrorCategory Category `json:"errorCategory,omitempty"`
	ErrorID       string   `json:"errorId,omitempty"`
	CanRetry      bool     `json:"canRetry"`
}

func (f *Failure) Error() string { return f.Message }

// CategorizedError permite que um produtor de erro declare a categoria
// explicitamente, sem depender do texto da mensagem.
type CategorizedError struct {
	Category Category
	Err      error
}

func (e *CategorizedError) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	return e.Err.Error()
}

func (e *CategorizedError) Unwrap() error { return e.Err }

// WithCategory anexa uma categoria a err.
func WithCategory(c Category, err error) error {
	if err == nil {
		return nil
	}
	return &CategorizedError{Category: c, Err: err}
}

// Categorizef cria um erro já categorizado.
func Categorizef(c Category, format string, args ...any) error {
	return &CategorizedError{Category: c, Err: fmt.Errorf(format, args...)}
}
