// Package domain define os tipos e contratos do rastreamento de posição na SERP.
//
// Este pacote não depende de net/http nem de implementações concretas
// (Redis, SQLite, goquery). As camadas application e infra dependem dele,
// nunca o contrário.
package domain
