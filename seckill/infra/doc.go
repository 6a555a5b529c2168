// Package infra contém as implementações concretas dos contratos de
// domain: o fast path de admissão e o cache de snapshots sobre Redis
// (go-redis), e o ledger durável sobre Postgres (database/sql).
//
// Detalhes de chave, script Lua, SQL e mapeamento de erros de driver vivem
// todos aqui; application nunca vê um comando Redis ou uma query.
package infra
