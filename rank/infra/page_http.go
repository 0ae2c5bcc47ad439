package infra

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"serp-rank/rank/domain"
)

// HTTPPage busca a página por GET. Falhas de transporte saem como network,
// 403/429 como bot_detection.
type HTTPPage struct {
	URL       string
	Client    *http.Client
	UserAgent string
}

func NewHTTPPage(url string) HTTPPage {
	return HTTPPage{
		URL:       url,
		Client:    &http.Client{Timeout: 15 * time.Second},
		UserAgent: "serprank/1.0",
	}
}

func (p HTTPPage) Page(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, domain.WithCategory(domain.CategoryValidation, err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	req.Header.Set("Accept", "text/html")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, domain.WithCategory(domain.CategoryNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		cat := domain.CategoryNetwork
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
			cat = domain.CategoryBotDetection
		}
		return nil, domain.Categorizef(cat, "fetch %s: unexpected status %d", p.URL, resp.StatusCode)
	}
	return resp.Body, nil
}
