package domain

import (
	"time"

	"github.com/google/uuid"
)

// Resource é o item escasso sendo disputado (ingresso, unidade de produto).
//
// InitialStock é imutável depois da publicação; reemitir estoque exige a
// reinicialização administrativa. Stock é o estoque durável vivo,
// decrementado apenas dentro da transação de CommitReservation.
type Resource struct {
	ID           int64
	Name         string
	Description  string
	InitialStock int64
	Stock        int64
}

// Reservation registra uma admissão confirmada no ledger.
//
// Única por (UserID, ResourceID). Essa constraint é a autoridade final
// contra grants duplicados, mesmo se o fast path se comportar mal.
// Nunca é atualizada depois de criada.
type Reservation struct {
	ID         uuid.UUID
	UserID     int64
	ResourceID int64
	CreatedAt  time.Time
}

// ResourceSnapshot é a cópia otimizada para leitura servida pelo cache.
// Count é a última contagem conhecida, não uma leitura transacional.
type ResourceSnapshot struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}
