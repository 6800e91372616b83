//go:build !ibm_db
// +build !ibm_db

package database

// go_ibm_db needs cgo and the IBM clidriver, so it is only linked with -tags ibm_db.
const db2Compiled = false
