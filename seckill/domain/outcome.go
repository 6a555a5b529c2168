package domain

// Outcome é o desfecho de uma tentativa de claim, visível ao adaptador
// HTTP. Todo fracasso do caminho de negócio aparece aqui com um código
// distinto; nada é engolido silenciosamente.
type Outcome string

const (
	OutcomeGranted              Outcome = "granted"
	OutcomeStockExhausted       Outcome = "stock_exhausted"
	OutcomeDuplicateClaim       Outcome = "duplicate_claim"
	OutcomeCounterUninitialized Outcome = "counter_uninitialized"
	OutcomeDurableWriteConflict Outcome = "durable_write_conflict"
	OutcomeInternalError        Outcome = "internal_error"
)

// Grant carrega o desfecho de AttemptClaim.
type Grant struct {
	Outcome Outcome

	// Reservation é preenchida apenas quando Outcome == OutcomeGranted.
	Reservation *Reservation

	// Remaining é a contagem durável conhecida após o commit; válida
	// apenas em OutcomeGranted.
	Remaining int64
}
