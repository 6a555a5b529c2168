package domain

import "context"

// AdmissionResult é o veredito do script atômico no counter store.
// Os códigos numéricos são os mesmos devolvidos pelo script.
type AdmissionResult int

const (
	AdmissionGranted        AdmissionResult = 1
	AdmissionAlreadyClaimed AdmissionResult = 0
	AdmissionNoStock        AdmissionResult = -1
	AdmissionNoCounter      AdmissionResult = -2
)

// ClaimStrategy seleciona como o registro de claims marca um usuário.
//
// Flag com TTL permite nova compra depois que a marca expira; membership
// permanente em um set nunca readmite. A escolha muda a semântica de
// fairness, então é configuração explícita do deployment, não um default
// escondido.
type ClaimStrategy string

const (
	StrategyPermanentSet ClaimStrategy = "set"
	StrategyFlagTTL      ClaimStrategy = "flag"
)

func (s ClaimStrategy) Valid() bool {
	return s == StrategyPermanentSet || s == StrategyFlagTTL
}

// AdmissionStore é o fast path: contador vivo + registro de claims por
// recurso, mutados somente pelo script de admissão, pela semeadura e pela
// compensação. Nenhum outro caminho de código escreve nessas chaves.
type AdmissionStore interface {
	// Admit executa o script check-decrement-mark. O store serializa a
	// execução por conta própria; nenhum lock de aplicação é envolvido.
	Admit(ctx context.Context, resourceID, userID int64) (AdmissionResult, error)

	// EnsureCounter semeia o contador com set-if-absent. Retorna true se
	// esta chamada criou o contador. Duas semeaduras concorrentes nunca
	// duplicam o estoque.
	EnsureCounter(ctx context.Context, resourceID, stock int64) (bool, error)

	// Compensate reverte o efeito de um grant após falha na escrita
	// durável: devolve a unidade ao contador e desfaz a marca do usuário
	// no registro, para um retry legítimo poder vencer de novo.
	// Best-effort: não é transacional com o ledger.
	Compensate(ctx context.Context, resourceID, userID int64) error

	// Remaining lê o contador vivo; ok=false quando ele não existe.
	Remaining(ctx context.Context, resourceID int64) (remaining int64, ok bool, err error)

	// Reset força contador = stock e limpa o registro de claims.
	// Destrutivo para estado em voo; somente manutenção.
	Reset(ctx context.Context, resourceID, stock int64) error
}
