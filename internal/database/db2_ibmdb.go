//go:build ibm_db
// +build ibm_db

package database

import (
	_ "github.com/ibmdb/go_ibm_db" // DB2 driver
)

const db2Compiled = true
