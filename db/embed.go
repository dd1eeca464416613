// Package db embeds the database schema and the default product catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is the default catalog as a JSON array of
// {id, name, price, quantity} objects.
//
//go:embed seed/products.json
var SeedProducts []byte
