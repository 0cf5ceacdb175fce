package web

import (
	"embed"
)

// static holds the embedded control page.
//
//go:embed static/*
var staticFiles embed.FS
