// Package application contém os casos de uso do seckill: o coordenador de
// claims (grant + compensação), o catálogo de leitura e a reinicialização
// administrativa.
//
// Nada aqui sabe de HTTP, Redis ou SQL; os stores chegam pelos contratos
// de domain, construídos uma vez no startup e injetados.
package application
