// Servidor de SERP falsa para validar o serprank sem depender de um buscador
// real: GET /search?q=... devolve uma página no layout div.g.
//
//	go run ./teste-validacao/servidor-serp -addr :8081 -block-every 3
//	SERPRANK_EXTRACTOR_PAGE=http://localhost:8081/search?q=x serprank check "running shoes"
package main

import (
	"flag"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

var results = []struct{ title, url, desc string }{
	{"Cheap flights to Paris", "https://fly.example/paris", "Compare fares from every airline"},
	{"Best running shoes of the year", "https://run.example/best", "Our picks for road and trail runners"},
	{"Running shoe sizing guide", "https://run.example/sizing", "How to measure your feet at home"},
	{"Marathon training plans", "https://run.example/plans", "Sixteen week plans for every level"},
}

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	blockEvery := flag.Int("block-every", 0, "answer 429 every N requests (0 = never)")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	var n atomic.Int64
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/search", func(w http.ResponseWriter, r *http.Request) {
		count := n.Add(1)
		if *blockEvery > 0 && count%int64(*blockEvery) == 0 {
			log.Info("blocking request", zap.Int64("n", count))
			http.Error(w, "unusual traffic", http.StatusTooManyRequests)
			return
		}
		log.Info("serving serp", zap.String("q", r.URL.Query().Get("q")), zap.Int64("n", count))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, render(r.URL.Query().Get("q")))
	})

	log.Info("fake serp listening", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func render(q string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s - Search</title></head><body><div id=\"search\">\n", html.EscapeString(q))
	b.WriteString(`<div class="g" data-text-ad="1"><a href="https://ads.example/"><h3>Sponsored result</h3></a><div class="VwiC3b">Ad</div></div>` + "\n")
	for _, res := range results {
		fmt.Fprintf(&b, "<div class=\"g\"><a href=\"%s\"><h3>%s</h3></a><div class=\"VwiC3b\">%s</div></div>\n",
			html.EscapeString(res.url), html.EscapeString(res.title), html.EscapeString(res.desc))
	}
	b.WriteString("</div></body></html>\n")
	return b.String()
}
