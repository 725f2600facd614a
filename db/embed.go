// Package db embeds the database schema applied at startup.
package db

import _ "embed"

// Schema holds the DDL for every table the POS backend uses. Statements
// are idempotent so the schema can be reapplied on every boot.
//
//go:embed migrations/001_schema.sql
var Schema string
