package infra

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"serp-rank/rank/domain"
)

// Selectors descreve onde estão os resultados na SERP.
// Title/Link/Description são relativos ao container.
type Selectors struct {
	Container   string
	Title       string
	Link        string
	Description string
	// Ad marca containers patrocinados (type=other).
	Ad string
}

// DefaultSelectors cobre o layout clássico de SERP (div.g / h3 / snippet).
func DefaultSelectors() Selectors {
	return Selectors{
		Container:   "div.g, li.b_algo, div.result",
		Title:       "h3, h2",
		Link:        "a[href]",
		Description: "div.VwiC3b, span.st, .b_caption p, .result__snippet, .snippet",
		Ad:          "[data-text-ad], .ads-ad, .b_ad, .result--ad",
	}
}

// HTMLExtractor implementa domain.Extractor sobre uma PageSource.
type HTMLExtractor struct {
	Source    PageSource
	Selectors Selectors
	// BaseURL resolve hrefs relativos. Opcional.
	BaseURL *url.URL
}

type HTMLExtractorOption func(*HTMLExtractor)

func WithSelectors(s Selectors) HTMLExtractorOption {
	return func(e *HTMLExtractor) { e.Selectors = mergeSelectors(s, e.Selectors) }
}

func WithBaseURL(u *url.URL) HTMLExtractorOption {
	return func(e *HTMLExtractor) { e.BaseURL = u }
}

func NewHTMLExtractor(src PageSource, opts ...HTMLExtractorOption) *HTMLExtractor {
	e := &HTMLExtractor{Source: src, Selectors: DefaultSelectors()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// mergeSelectors completa campos vazios de s com def.
func mergeSelectors(s, def Selectors) Selectors {
	if s.Container == "" {
		s.Container = def.Container
	}
	if s.Title == "" {
		s.Title = def.Title
	}
	if s.Link == "" {
		s.Link = def.Link
	}
	if s.Description == "" {
		s.Description = def.Description
	}
	if s.Ad == "" {
		s.Ad = def.Ad
	}
	return s
}

func (e *HTMLExtractor) Extract(ctx context.Context) ([]domain.ResultRecord, error) {
	if e == nil || e.Source == nil {
		return nil, domain.WithCategory(domain.CategoryDOM, domain.ErrNoPage)
	}

	rc, err := e.Source.Page(ctx)
	if err != nil {
		var ce *domain.CategorizedError
		if errors.As(err, &ce) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, domain.WithCategory(domain.CategoryDOM, fmt.Errorf("%w: %v", domain.ErrNoPage, err))
	}
	defer rc.Close()

	doc, err := goquery.NewDocumentFromReader(rc)
	if err != nil {
		return nil, domain.Categorizef(domain.CategoryParsing, "parse page: %v", err)
	}

	containers := doc.Find(e.Selectors.Container)
	if containers.Length() == 0 {
		return nil, domain.WithCategory(domain.CategoryDOM, domain.ErrNoResults)
	}

	out := make([]domain.ResultRecord, 0, containers.Length())
	containers.Each(func(_ int, s *goquery.Selection) {
		// containers aninhados (div.g dentro de div.g) contam uma vez só
		if s.ParentsFiltered(e.Selectors.Container).Length() > 0 {
			return
		}
		rec, ok := e.record(s)
		if !ok {
			return
		}
		rec.Position = len(out) + 1
		out = append(out, rec)
	})
	return out, nil
}

func (e *HTMLExtractor) record(s *goquery.Selection) (domain.ResultRecord, bool) {
	title := cleanText(s.Find(e.Selectors.Title).First().Text())

	link := s.Find(e.Selectors.Link).First()
	if link.Length() == 0 && goquery.NodeName(s) == "a" {
		link = s
	}
	href, _ := link.Attr("href")
	href = e.resolve(strings.TrimSpace(href))

	if title == "" && href == "" {
		return domain.ResultRecord{}, false
	}

	rec := domain.ResultRecord{
		Title:       title,
		URL:         href,
		Description: cleanText(s.Find(e.Selectors.Description).First().Text()),
		Type:        domain.ResultOrganic,
	}
	if e.Selectors.Ad != "" && (s.Is(e.Selectors.Ad) || s.Find(e.Selectors.Ad).Length() > 0) {
		rec.Type = domain.ResultOther
	}
	return rec, true
}

// resolve desembrulha links de redirecionamento (/url?q=...) e resolve
// relativos contra BaseURL.
func (e *HTMLExtractor) resolve(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.Path == "/url" {
		if q := u.Query().Get("q"); q != "" {
			return q
		}
	}
	if e.BaseURL != nil && !u.IsAbs() {
		return e.BaseURL.ResolveReference(u).String()
	}
	return href
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
