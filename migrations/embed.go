// Package migrations holds the backend schema, applied on start by cmd/api.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
