// Package repository is the data access layer. Services depend on the
// interfaces declared here; the sqlite_*.go files implement them.
//
// Methods that take a database.TxQuerier run on whatever they are given, so
// the service layer can group them inside database.WithTx.
package repository
