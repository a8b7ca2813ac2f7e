package web

import "embed"

// DistFS contains the built canvas client.
// The dist/ directory is replaced by the client build; the checked-in
// index.html is a minimal page that talks to the REST API directly.
//
//go:embed all:dist
var DistFS embed.FS
