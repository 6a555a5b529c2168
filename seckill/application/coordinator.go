package application

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/QctheGithuber/seckillweb/seckill/domain"
)

// Coordinator orquestra o caminho de claim: garante o contador, invoca o
// script de admissão, faz a escrita durável condicional e compensa o fast
// path quando ela falha.
//
// Nenhuma admissão bloqueia outra de usuário diferente; cada requisição é
// independente de ponta a ponta. A serialização acontece só dentro do
// script do counter store.
type Coordinator struct {
	admission domain.AdmissionStore
	ledger    domain.Ledger
	cache     domain.SnapshotCache
}

func NewCoordinator(admission domain.AdmissionStore, ledger domain.Ledger, cache domain.SnapshotCache) *Coordinator {
	return &Coordinator{admission: admission, ledger: ledger, cache: cache}
}

// AttemptClaim tenta conceder uma unidade de resourceID a userID.
//
// Rejeições determinísticas de negócio (sem estoque, claim duplicado)
// voltam como Outcome com erro nil: não são falhas, são respostas. Erro
// não-nil acompanha os desfechos de infraestrutura
// (CounterUninitialized, DurableWriteConflict, InternalError) e recurso
// inexistente.
func (c *Coordinator) AttemptClaim(ctx context.Context, userID, resourceID int64) (domain.Grant, error) {
	res, err := c.ledger.GetResource(ctx, resourceID)
	if errors.Is(err, domain.ErrResourceNotFound) {
		return domain.Grant{}, err
	}
	if err != nil {
		return domain.Grant{Outcome: domain.OutcomeInternalError}, fmt.Errorf("resolve resource: %w", err)
	}

	// semeadura preguiçosa: set-if-absent a partir do estoque durável
	// corrente. Atômica, então duas primeiras-requisições concorrentes
	// nunca duplicam o estoque.
	if _, err := c.admission.EnsureCounter(ctx, resourceID, res.Stock); err != nil {
		return domain.Grant{Outcome: domain.OutcomeInternalError}, fmt.Errorf("seed counter: %w", err)
	}

	verdict, err := c.admission.Admit(ctx, resourceID, userID)
	if err != nil {
		return domain.Grant{Outcome: domain.OutcomeInternalError}, fmt.Errorf("admission: %w", err)
	}

	if verdict == domain.AdmissionNoCounter {
		// só acontece se a própria semeadura falhou ou o contador sumiu
		// entre ela e o script (flush externo). Semeia e tenta uma única
		// vez; depois disso desiste e o chamador pode retentar.
		if _, err := c.admission.EnsureCounter(ctx, resourceID, res.Stock); err != nil {
			return domain.Grant{Outcome: domain.OutcomeCounterUninitialized}, fmt.Errorf("reseed counter: %w", err)
		}
		verdict, err = c.admission.Admit(ctx, resourceID, userID)
		if err != nil {
			return domain.Grant{Outcome: domain.OutcomeInternalError}, fmt.Errorf("admission after reseed: %w", err)
		}
		if verdict == domain.AdmissionNoCounter {
			return domain.Grant{Outcome: domain.OutcomeCounterUninitialized}, domain.ErrCounterUninitialized
		}
	}

	switch verdict {
	case domain.AdmissionNoStock:
		return domain.Grant{Outcome: domain.OutcomeStockExhausted}, nil
	case domain.AdmissionAlreadyClaimed:
		return domain.Grant{Outcome: domain.OutcomeDuplicateClaim}, nil
	}

	// o fast path concedeu: a partir daqui a unidade já foi consumida no
	// contador, e qualquer falha durável precisa decidir se devolve.
	reservation, remaining, err := c.ledger.CommitReservation(ctx, userID, resourceID)
	switch {
	case errors.Is(err, domain.ErrDurableWriteConflict):
		c.compensate(ctx, resourceID, userID)
		return domain.Grant{Outcome: domain.OutcomeDurableWriteConflict}, err
	case errors.Is(err, domain.ErrDuplicateClaim):
		// o grant original deste usuário consumiu a unidade
		// legitimamente; devolver agora criaria estoque fantasma.
		return domain.Grant{Outcome: domain.OutcomeDuplicateClaim}, nil
	case err != nil:
		c.compensate(ctx, resourceID, userID)
		return domain.Grant{Outcome: domain.OutcomeInternalError}, fmt.Errorf("durable write: %w", err)
	}

	c.refreshSnapshot(ctx, res, remaining)

	return domain.Grant{
		Outcome:     domain.OutcomeGranted,
		Reservation: &reservation,
		Remaining:   remaining,
	}, nil
}

// compensate reverte o grant no fast path depois de uma falha durável.
// Best-effort: se o store estiver inacessível o contador fica subestimado
// até a próxima reconciliação. Gap de consistência aceito e documentado,
// em troca de não haver transação distribuída entre os dois stores.
func (c *Coordinator) compensate(ctx context.Context, resourceID, userID int64) {
	if err := c.admission.Compensate(ctx, resourceID, userID); err != nil {
		log.Printf("compensation failed for resource %d user %d: %v", resourceID, userID, err)
	}
}

// refreshSnapshot sobrescreve a entrada do cache com a contagem nova para
// leitores verem o commit sem esperar o TTL. Falha aqui não afeta o grant.
func (c *Coordinator) refreshSnapshot(ctx context.Context, res domain.Resource, remaining int64) {
	if c.cache == nil {
		return
	}
	snap := domain.ResourceSnapshot{ID: res.ID, Name: res.Name, Count: remaining}
	if err := c.cache.Put(ctx, snap); err != nil {
		log.Printf("snapshot refresh failed for resource %d: %v", res.ID, err)
	}
}
