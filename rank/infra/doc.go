// Package infra contém implementações concretas dos contratos de domain.
//
// Exemplos:
//   - TokenBuckets: token bucket por cliente ou cliente+keyword (golang.org/x/time/rate)
//   - EvaluationSlots: vagas para avaliações simultâneas
//   - MemoryKV, RedisKV, SQLiteKV: backends de persistência do histórico
//   - HTMLExtractor: extração de resultados de uma SERP com goquery
//   - FilePage, StringPage, HTTPPage: de onde vem o HTML da página atual
//   - PromRecorder: métricas Prometheus
package infra
