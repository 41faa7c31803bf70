// Package web embeds the report pages and their stylesheet.
package web

import "embed"

// TemplatesFS holds the server-rendered pages.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and other static assets.
//
//go:embed static/*
var StaticFS embed.FS
