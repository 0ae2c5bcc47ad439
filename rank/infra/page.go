package infra

import (
	"context"
	"io"
	"os"
	"strings"
)

// PageSource entrega o HTML da "página atual" para o extrator.
type PageSource interface {
	Page(ctx context.Context) (io.ReadCloser, error)
}

// PageAt escolhe a fonte pelo formato de loc: URL http(s) ou caminho de arquivo.
func PageAt(loc string) PageSource {
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return NewHTTPPage(loc)
	}
	return FilePage(loc)
}

// FilePage lê a página de um arquivo salvo (ex.: SERP exportada pelo navegador).
type FilePage string

func (p FilePage) Page(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(string(p))
}

// StringPage é uma página já em memória (corpo de requisição, testes).
type StringPage string

func (p StringPage) Page(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(string(p))), nil
}
