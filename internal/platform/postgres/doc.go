// Package postgres provides PostgreSQL implementations of the store
// interfaces. All stores operate over store.DBTX so the same code serves
// both a *sql.DB and a *sql.Tx; WithTx rebinds a store to a transaction.
package postgres
