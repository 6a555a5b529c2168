// Package domain contém os contratos e tipos do seckill.
//
// Regras e taxonomia de erros sem dependência de net/http, de drivers de
// banco ou do cliente Redis. As camadas de application e infra dependem
// daqui, nunca o contrário.
package domain
