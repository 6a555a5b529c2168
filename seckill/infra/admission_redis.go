package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/QctheGithuber/seckillweb/seckill/domain"

	"github.com/redis/go-redis/v9"
)

// admissionScript é o primitivo atômico check-decrement-mark. O Redis
// executa scripts um por vez, então nenhuma outra operação sobre as mesmas
// chaves é observada intercalada — toda a contenção de um recurso afunila
// nessa única chave (hot key, por design).
//
// Retornos: 1 concedido, 0 usuário já marcado, -1 sem estoque, -2 contador
// ausente. A checagem de dedup vem antes da de estoque de propósito: quem
// já tem claim recebe "já comprou" mesmo com o estoque esgotado por
// terceiros, nunca um "sem estoque" ambíguo.
//
// As duas estratégias de registro passam pelo mesmo script: membership
// permanente em um SET, ou flag por usuário com TTL.
var admissionScript = redis.NewScript(`
local counter_key = KEYS[1]
local registry_key = KEYS[2]
local user_id = ARGV[1]
local strategy = ARGV[2]
local ttl = tonumber(ARGV[3])

if strategy == 'set' then
    if redis.call('SISMEMBER', registry_key, user_id) == 1 then
        return 0
    end
else
    if redis.call('EXISTS', registry_key .. ':' .. user_id) == 1 then
        return 0
    end
end

local stock = redis.call('GET', counter_key)
if not stock then
    return -2
end
if tonumber(stock) <= 0 then
    return -1
end

redis.call('DECR', counter_key)
if strategy == 'set' then
    redis.call('SADD', registry_key, user_id)
else
    local flag_key = registry_key .. ':' .. user_id
    redis.call('SET', flag_key, 1)
    if ttl > 0 then
        redis.call('EXPIRE', flag_key, ttl)
    end
end
return 1
`)

// compensationScript desfaz um grant cuja escrita durável falhou: devolve
// a unidade ao contador e remove a marca do usuário, de uma vez, para um
// retry legítimo não receber "já comprou" por um grant que nunca virou
// reserva.
var compensationScript = redis.NewScript(`
local counter_key = KEYS[1]
local registry_key = KEYS[2]
local user_id = ARGV[1]
local strategy = ARGV[2]

redis.call('INCR', counter_key)
if strategy == 'set' then
    redis.call('SREM', registry_key, user_id)
else
    redis.call('DEL', registry_key .. ':' .. user_id)
end
return 1
`)

// AdmissionStore implementa domain.AdmissionStore sobre Redis. O script é
// registrado uma vez no startup do processo (redis.NewScript faz EVALSHA
// com fallback para EVAL), nunca recarregado por requisição.
type AdmissionStore struct {
	rdb      *redis.Client
	prefix   string
	strategy domain.ClaimStrategy
	flagTTL  time.Duration
}

type AdmissionOption func(*AdmissionStore)

func WithKeyPrefix(prefix string) AdmissionOption {
	return func(s *AdmissionStore) { s.prefix = prefix }
}

func WithStrategy(strategy domain.ClaimStrategy) AdmissionOption {
	return func(s *AdmissionStore) { s.strategy = strategy }
}

// WithFlagTTL ajusta a vida útil da marca de claim na estratégia de flag.
// Ignorado na estratégia de set permanente.
func WithFlagTTL(d time.Duration) AdmissionOption {
	return func(s *AdmissionStore) { s.flagTTL = d }
}

func NewAdmissionStore(rdb *redis.Client, opts ...AdmissionOption) *AdmissionStore {
	s := &AdmissionStore{
		rdb:      rdb,
		prefix:   "seckill",
		strategy: domain.StrategyPermanentSet,
		flagTTL:  10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AdmissionStore) counterKey(resourceID int64) string {
	return fmt.Sprintf("%s:resource:%d:stock", s.prefix, resourceID)
}

func (s *AdmissionStore) registryKey(resourceID int64) string {
	return fmt.Sprintf("%s:resource:%d:claimed", s.prefix, resourceID)
}

// Admit implementa domain.AdmissionStore.
func (s *AdmissionStore) Admit(ctx context.Context, resourceID, userID int64) (domain.AdmissionResult, error) {
	ttl := int64(0)
	if s.strategy == domain.StrategyFlagTTL {
		ttl = int64(s.flagTTL / time.Second)
	}

	res, err := admissionScript.Run(ctx, s.rdb,
		[]string{s.counterKey(resourceID), s.registryKey(resourceID)},
		userID, string(s.strategy), ttl,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: admission script: %w", domain.ErrStoreUnavailable, err)
	}
	return domain.AdmissionResult(res), nil
}

// EnsureCounter semeia o contador com SET NX. O set-if-absent é o que
// impede duas primeiras-requisições concorrentes de semear o mesmo recurso
// duas vezes e causar oversell que a constraint do ledger não pega.
func (s *AdmissionStore) EnsureCounter(ctx context.Context, resourceID, stock int64) (bool, error) {
	created, err := s.rdb.SetNX(ctx, s.counterKey(resourceID), stock, 0).Result()
	if err != nil {
		return false, fmt.Errorf("%w: seed counter: %w", domain.ErrStoreUnavailable, err)
	}
	return created, nil
}

// Compensate reverte o grant no fast path: devolve a unidade e desfaz a
// marca do usuário, na mesma execução atômica. Não é transacional com o
// ledger: se esta chamada falhar, o contador fica subestimado até a
// próxima reinicialização administrativa.
func (s *AdmissionStore) Compensate(ctx context.Context, resourceID, userID int64) error {
	err := compensationScript.Run(ctx, s.rdb,
		[]string{s.counterKey(resourceID), s.registryKey(resourceID)},
		userID, string(s.strategy),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: compensate grant: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Remaining lê o contador vivo; ok=false quando ele não existe.
func (s *AdmissionStore) Remaining(ctx context.Context, resourceID int64) (int64, bool, error) {
	v, err := s.rdb.Get(ctx, s.counterKey(resourceID)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: read counter: %w", domain.ErrStoreUnavailable, err)
	}
	return v, true, nil
}

// Reset força contador = stock e limpa o registro de claims das duas
// estratégias. Somente manutenção: apaga marcas legítimas em voo.
func (s *AdmissionStore) Reset(ctx context.Context, resourceID, stock int64) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.counterKey(resourceID), stock, 0)
	pipe.Del(ctx, s.registryKey(resourceID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: reset counter: %w", domain.ErrStoreUnavailable, err)
	}

	// flags por usuário vivem em chaves próprias; varre e apaga.
	iter := s.rdb.Scan(ctx, 0, s.registryKey(resourceID)+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("%w: clear claim flag: %w", domain.ErrStoreUnavailable, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: scan claim flags: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}
