package application

import (
	"context"
	"errors"
	"strings"

	"serp-rank/rank/domain"
)

// Categorizer classifica uma falha. meta é o contexto da operação que falhou.
type Categorizer interface {
	Categorize(err error, meta map[string]any) domain.Category
}

type categoryRule struct {
	category domain.Category
	terms    []string
}

// A ordem importa: a primeira regra com algum termo contido na mensagem vence.
var categoryRules = []categoryRule{
	{domain.CategoryNetwork, []string{"network", "fetch", "connection", "econnrefused", "econnreset", "no such host", "offline"}},
	{domain.CategoryDOM, []string{"element", "dom", "selector", "node"}},
	{domain.CategoryParsing, []string{"parse", "json", "syntax", "unexpected token", "unmarshal"}},
	{domain.CategoryTimeout, []string{"timeout", "timed out", "deadline"}},
	{domain.CategoryBotDetection, []string{"captcha", "bot", "blocked", "unusual traffic", "too many requests"}},
	{domain.CategoryValidation, []string{"invalid", "validation", "required"}},
}

// KeywordCategorizer procura termos na mensagem em minúsculas.
type KeywordCategorizer struct{}

func (KeywordCategorizer) Categorize(err error, _ map[string]any) domain.Category {
	if err == nil {
		return domain.CategoryUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range categoryRules {
		for _, term := range rule.terms {
			if strings.Contains(msg, term) {
				return rule.category
			}
		}
	}
	return domain.CategoryUnknown
}

// StructuredCategorizer respeita categorias declaradas (domain.CategorizedError,
// meta["category"], context.DeadlineExceeded) e só depois cai no Fallback.
type StructuredCategorizer struct {
	Fallback Categorizer
}

func (s StructuredCategorizer) Categorize(err error, meta map[string]any) domain.Category {
	var ce *domain.CategorizedError
	if errors.As(err, &ce) && ce.Category != "" {
		return ce.Category
	}
	if c, ok := meta["category"].(domain.Category); ok && c != "" {
		return c
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.CategoryTimeout
	}

	fb := s.Fallback
	if fb == nil {
		fb = KeywordCategorizer{}
	}
	return fb.Categorize(err, meta)
}
