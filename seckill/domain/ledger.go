package domain

import "context"

// Ledger é o armazenamento durável e autoritativo de recursos e reservas.
//
// CommitReservation faz, em uma única transação, o decremento condicional
// do estoque (predicado stock > 0) e o insert da reserva. O predicado é a
// segunda linha de defesa: mesmo com o fast path já tendo concedido, o
// ledger revalida antes de registrar.
type Ledger interface {
	ListResources(ctx context.Context) ([]Resource, error)

	// GetResource retorna ErrResourceNotFound quando o id é desconhecido.
	GetResource(ctx context.Context, id int64) (Resource, error)

	// CreateResource publica um recurso com stock = initialStock.
	CreateResource(ctx context.Context, name, description string, initialStock int64) (Resource, error)

	// CommitReservation retorna o estoque durável restante após o commit.
	// Erros: ErrDurableWriteConflict quando o predicado não atualiza
	// nenhuma linha, ErrDuplicateClaim quando a constraint única é
	// violada, ou o erro cru da transação.
	CommitReservation(ctx context.Context, userID, resourceID int64) (Reservation, int64, error)

	// ResetStock devolve resources.stock para initial_stock e retorna o
	// novo valor. Usado apenas pela reinicialização administrativa.
	ResetStock(ctx context.Context, id int64) (int64, error)
}

// SnapshotCache guarda cópias de leitura dos recursos. Não participa da
// correção da admissão; falhas aqui são toleradas pelos chamadores.
type SnapshotCache interface {
	Get(ctx context.Context, resourceID int64) (ResourceSnapshot, bool, error)
	Put(ctx context.Context, snap ResourceSnapshot) error
}
