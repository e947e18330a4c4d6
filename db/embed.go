// Package db provides the embedded database schema and the bundled catalog.
package db

import _ "embed"

// Schema contains the DDL statements for the catalog tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Catalog is the product catalog served when no catalog file is configured.
//
//go:embed catalog/products.json
var Catalog []byte
