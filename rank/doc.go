// Package rank expõe o núcleo de avaliação de ranking pela interface de
// mensagens (HTTP/JSON).
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: matcher, coordenador de resiliência, histórico e orquestrador
//   - infra: implementações concretas (goquery, Redis, SQLite, token bucket, Prometheus)
//   - rank (este pacote): dispatcher de ações, rotas chi e admissão de mensagens
//
// Fluxo de uma mensagem:
//
//   1) Decodifica {"action": ...}
//   2) Extrai a chave do cliente (IP/header/XFF) e aplica o rate limit do cliente (429)
//   3) findKeywordRank passa também pelo limite cliente+keyword (429)
//   4) Avaliações ocupam uma vaga (503 se esgotar o tempo de espera); leituras não
//   5) Despacha para o caso de uso e responde 200 com {"success": bool, ...}
//
// A configuração do binário (cmd/serprank) vem de YAML + variáveis SERPRANK_*.
package rank
