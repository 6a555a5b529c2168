package domain

import "errors"

// Taxonomia de erros do caminho de negócio.
//
// Rejeições determinísticas (ErrResourceNotFound, ErrStockExhausted,
// ErrDuplicateClaim) voltam direto ao chamador e nunca são retentadas
// internamente. ErrStoreUnavailable sobe imediatamente: retry cego depois
// de uma possível mutação parcial do fast path arrisca efeito duplo, então
// a política de retry fica com o chamador.
var (
	ErrResourceNotFound     = errors.New("resource not found")
	ErrStockExhausted       = errors.New("stock exhausted")
	ErrDuplicateClaim       = errors.New("claim already exists for user and resource")
	ErrCounterUninitialized = errors.New("fast-path counter uninitialized")
	ErrDurableWriteConflict = errors.New("durable stock update conflicted")
	ErrStoreUnavailable     = errors.New("backing store unavailable")
)
