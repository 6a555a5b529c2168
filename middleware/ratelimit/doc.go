// Package ratelimit fornece um middleware net/http de limite por chave
// (token bucket via golang.org/x/time/rate) para a rota de claim.
//
// A chave padrão é o user_id da rota, então um usuário martelando o botão
// de compra não consome a taxa dos demais. O middleware é opcional e fica
// fora do caminho de correção da admissão: desligá-lo não muda nenhuma
// garantia de no-oversell, só expõe o contador a mais tráfego.
package ratelimit
