package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// paletteColors is the fixed accent palette the web player applies to album
// art placeholders.
var paletteColors = []string{
	"#335eea",
	"#22c17b",
	"#f5c518",
	"#e2442f",
	"#8e44ad",
	"#14b8c4",
}

// Palette serves the hardcoded color palette.
func Palette(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"colors": paletteColors,
	})
}
