package api

import _ "embed"

// indexHTML is the page served by the home handler.
//
//go:embed static/index.html
var indexHTML []byte
