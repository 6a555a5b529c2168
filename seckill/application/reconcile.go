package application

import (
	"context"
	"fmt"

	"github.com/QctheGithuber/seckillweb/seckill/domain"
)

// Reconciler é a operação administrativa de reinicialização: para cada
// recurso, contador = initial_stock e registro de claims limpo.
//
// Idempotente em efeito, mas destrutiva para qualquer estado legítimo em
// voo: rodar com tráfego ativo reseta estoque já consumido e apaga claim
// markers, causando oversell ou readmissão de usuários já atendidos. Rode
// apenas antes do tráfego começar ou em janela de manutenção declarada —
// por isso vive em um binário separado, fora do caminho público de claim.
type Reconciler struct {
	admission domain.AdmissionStore
	ledger    domain.Ledger

	// restoreDurable também devolve resources.stock para initial_stock,
	// para uma reemissão partir de um par de stores consistente. As
	// versões anteriores do sistema resetavam só o Redis e deixavam o
	// banco com o operador.
	restoreDurable bool
}

func NewReconciler(admission domain.AdmissionStore, ledger domain.Ledger, restoreDurable bool) *Reconciler {
	return &Reconciler{admission: admission, ledger: ledger, restoreDurable: restoreDurable}
}

// Reinitialize reseta um único recurso.
func (r *Reconciler) Reinitialize(ctx context.Context, resourceID int64) error {
	res, err := r.ledger.GetResource(ctx, resourceID)
	if err != nil {
		return err
	}
	return r.reinitialize(ctx, res)
}

// ReinitializeAll reseta todos os recursos do ledger e retorna quantos
// foram processados antes de qualquer falha.
func (r *Reconciler) ReinitializeAll(ctx context.Context) (int, error) {
	resources, err := r.ledger.ListResources(ctx)
	if err != nil {
		return 0, err
	}
	for i, res := range resources {
		if err := r.reinitialize(ctx, res); err != nil {
			return i, fmt.Errorf("resource %d: %w", res.ID, err)
		}
	}
	return len(resources), nil
}

func (r *Reconciler) reinitialize(ctx context.Context, res domain.Resource) error {
	if r.restoreDurable {
		if _, err := r.ledger.ResetStock(ctx, res.ID); err != nil {
			return fmt.Errorf("restore durable stock: %w", err)
		}
	}
	if err := r.admission.Reset(ctx, res.ID, res.InitialStock); err != nil {
		return fmt.Errorf("reset fast path: %w", err)
	}
	return nil
}
