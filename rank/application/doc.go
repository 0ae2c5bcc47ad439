// Package application contém os casos de uso do rastreamento de posição:
// casamento de keyword (Matcher), resiliência (Coordinator), histórico
// (HistoryStore) e a orquestração dos três (Orchestrator), além das regras
// de throttling da interface de mensagens.
//
// Depende apenas de domain e ring; não conhece net/http nem backends concretos.
// Ex.: Orchestrator.Evaluate(ctx, "running shoes") devolve uma Evaluation ou
// uma domain.Failure estruturada.
package application
