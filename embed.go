package spacetraveling

import "embed"

// EmbeddedAssets contains static assets shipped with the app: loadmore.js
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
