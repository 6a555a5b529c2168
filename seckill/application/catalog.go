package application

import (
	"context"
	"errors"
	"log"

	"github.com/QctheGithuber/seckillweb/seckill/domain"
)

// Catalog serve o caminho de leitura. Eventualmente consistente dentro da
// janela de TTL do cache; não participa da correção da admissão.
type Catalog struct {
	admission domain.AdmissionStore
	ledger    domain.Ledger
	cache     domain.SnapshotCache
}

func NewCatalog(admission domain.AdmissionStore, ledger domain.Ledger, cache domain.SnapshotCache) *Catalog {
	return &Catalog{admission: admission, ledger: ledger, cache: cache}
}

// List retorna todos os recursos com a contagem viva do counter store
// quando existe; caso contrário cai para o estoque durável. Erros do fast
// path são tolerados aqui: a listagem degrada, não falha.
func (c *Catalog) List(ctx context.Context) ([]domain.ResourceSnapshot, error) {
	resources, err := c.ledger.ListResources(ctx)
	if err != nil {
		return nil, err
	}

	snaps := make([]domain.ResourceSnapshot, 0, len(resources))
	for _, r := range resources {
		snaps = append(snaps, c.snapshot(ctx, r))
	}
	return snaps, nil
}

// Get é o read-through: hit dentro do TTL responde do cache; miss lê do
// ledger, popula e responde.
func (c *Catalog) Get(ctx context.Context, resourceID int64) (domain.ResourceSnapshot, error) {
	if c.cache != nil {
		if snap, ok, err := c.cache.Get(ctx, resourceID); err == nil && ok {
			return snap, nil
		} else if err != nil {
			log.Printf("snapshot cache read failed for resource %d: %v", resourceID, err)
		}
	}

	r, err := c.ledger.GetResource(ctx, resourceID)
	if err != nil {
		return domain.ResourceSnapshot{}, err
	}

	snap := c.snapshot(ctx, r)
	if c.cache != nil {
		if err := c.cache.Put(ctx, snap); err != nil {
			log.Printf("snapshot cache write failed for resource %d: %v", resourceID, err)
		}
	}
	return snap, nil
}

// Create publica um recurso novo. InitialStock é imutável depois daqui;
// reemitir estoque passa pela reinicialização administrativa.
func (c *Catalog) Create(ctx context.Context, name, description string, initialStock int64) (domain.Resource, error) {
	if name == "" {
		return domain.Resource{}, errors.New("resource name is required")
	}
	if initialStock < 0 {
		return domain.Resource{}, errors.New("initial stock must be non-negative")
	}
	return c.ledger.CreateResource(ctx, name, description, initialStock)
}

func (c *Catalog) snapshot(ctx context.Context, r domain.Resource) domain.ResourceSnapshot {
	count := r.Stock
	if remaining, ok, err := c.admission.Remaining(ctx, r.ID); err == nil && ok {
		count = remaining
	}
	return domain.ResourceSnapshot{ID: r.ID, Name: r.Name, Count: count}
}
