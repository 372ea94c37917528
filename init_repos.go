// Package main: Repository katmanı başlatma.
//
// initStore, tüm repository implementasyonlarını tek bir Store altında toplar.
// Store transaction içinde aynı repository'leri *sql.Tx ile yeniden kurar;
// service'ler çok tablolu yazımları Store.WithTx ile yapar.
package main

import (
	"database/sql"

	"github.com/akinalp/huddle/repository"
)

// initStore, veritabanı bağlantısından repository Store'unu oluşturur.
//
// Bağlantı havuzu tek bağlantılıdır (bkz. database.New); repository'ler bir
// rows iterasyonu açıkken ikinci sorgu çalıştırmaz.
func initStore(conn *sql.DB) *repository.Store {
	return repository.NewStore(conn)
}
