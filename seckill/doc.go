// Package seckill fornece os adaptadores HTTP do serviço de flash sale.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos (sem net/http, sem drivers)
//   - application: casos de uso (claim, catálogo, reinicialização)
//   - infra: Redis (contador/registro/cache) e Postgres (ledger)
//   - seckill (este pacote): rotas chi + tradução Outcome → status/JSON
//
// Fluxo de um claim:
//
//  1. POST /claims/{user_id}/{resource_id} chega aqui
//  2. o coordenador garante o contador, roda o script atômico e, em caso
//     de grant, faz a escrita durável condicional (compensando em falha)
//  3. o desfecho vira status HTTP: 200 grant, 409 rejeição determinística,
//     404 recurso desconhecido, 5xx para falhas retentáveis
package seckill
