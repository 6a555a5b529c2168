package infra

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/QctheGithuber/seckillweb/seckill/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// OpenPostgres abre e valida a conexão com o ledger. O handle é construído
// uma vez no startup e injetado; nada de reconexão por requisição.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %w", domain.ErrStoreUnavailable, err)
	}
	return db, nil
}

// EnsureSchema cria as tabelas do ledger se ainda não existirem.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PostgresLedger implementa domain.Ledger sobre database/sql.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) ListResources(ctx context.Context) ([]domain.Resource, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, name, description, initial_stock, stock FROM resources ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var resources []domain.Resource
	for rows.Next() {
		var r domain.Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.InitialStock, &r.Stock); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

func (l *PostgresLedger) GetResource(ctx context.Context, id int64) (domain.Resource, error) {
	var r domain.Resource
	err := l.db.QueryRowContext(ctx,
		`SELECT id, name, description, initial_stock, stock FROM resources WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Name, &r.Description, &r.InitialStock, &r.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	if err != nil {
		return domain.Resource{}, fmt.Errorf("get resource %d: %w", id, err)
	}
	return r, nil
}

func (l *PostgresLedger) CreateResource(ctx context.Context, name, description string, initialStock int64) (domain.Resource, error) {
	r := domain.Resource{
		Name:         name,
		Description:  description,
		InitialStock: initialStock,
		Stock:        initialStock,
	}
	err := l.db.QueryRowContext(ctx,
		`INSERT INTO resources(name, description, initial_stock, stock) VALUES($1, $2, $3, $3) RETURNING id`,
		name, description, initialStock,
	).Scan(&r.ID)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("create resource: %w", err)
	}
	return r, nil
}

// CommitReservation é a escrita durável do caminho de claim: decremento
// condicional do estoque e insert da reserva na mesma transação. Curta e
// local à linha de um recurso; a contenção aqui é limitada a commits
// consecutivos do mesmo recurso.
func (l *PostgresLedger) CommitReservation(ctx context.Context, userID, resourceID int64) (domain.Reservation, int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reservation{}, 0, fmt.Errorf("%w: begin reservation tx: %w", domain.ErrStoreUnavailable, err)
	}

	var remaining int64
	err = tx.QueryRowContext(ctx,
		`UPDATE resources SET stock = stock - 1 WHERE id = $1 AND stock > 0 RETURNING stock`,
		resourceID,
	).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		// o ledger discorda do fast path: estoque durável já zerado.
		tx.Rollback()
		return domain.Reservation{}, 0, domain.ErrDurableWriteConflict
	}
	if err != nil {
		tx.Rollback()
		return domain.Reservation{}, 0, fmt.Errorf("decrement durable stock: %w", err)
	}

	res := domain.Reservation{
		ID:         uuid.New(),
		UserID:     userID,
		ResourceID: resourceID,
		CreatedAt:  time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO reservations(id, user_id, resource_id, created_at) VALUES($1, $2, $3, $4)`,
		res.ID, res.UserID, res.ResourceID, res.CreatedAt,
	)
	if err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return domain.Reservation{}, 0, domain.ErrDuplicateClaim
		}
		return domain.Reservation{}, 0, fmt.Errorf("insert reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Reservation{}, 0, fmt.Errorf("commit reservation: %w", err)
	}
	return res, remaining, nil
}

func (l *PostgresLedger) ResetStock(ctx context.Context, id int64) (int64, error) {
	var stock int64
	err := l.db.QueryRowContext(ctx,
		`UPDATE resources SET stock = initial_stock WHERE id = $1 RETURNING stock`,
		id,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrResourceNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("reset stock %d: %w", id, err)
	}
	return stock, nil
}

// isUniqueViolation reconhece o SQLSTATE 23505 (unique_violation).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
