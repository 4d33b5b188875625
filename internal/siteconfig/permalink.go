package siteconfig

import "strings"

// PageInfo describes where a page comes from.
type PageInfo struct {
	// InputPath is the source path relative to the input root, slash separated.
	InputPath string
	// FilePathStem is InputPath without its extension.
	FilePathStem string
}

// PageData is the per-page record computed data functions receive.
// A nil Page means the page info is absent; a nil Permalink means no
// permalink was assigned before computed data ran.
type PageData struct {
	Page      *PageInfo
	Permalink *string
}

// ComputedFunc derives a value from page data. The boolean reports whether a
// value is present.
type ComputedFunc func(data *PageData) (string, bool)

// Computed maps data keys to the functions that compute them.
type Computed map[string]ComputedFunc

// Permalink keeps .html sources at their original path (stem + ".html") and
// returns the existing permalink unchanged for everything else, including an
// absent one.
func Permalink(data *PageData) (string, bool) {
	input := ""
	if data != nil && data.Page != nil {
		input = data.Page.InputPath
	}
	if strings.HasSuffix(input, ".html") {
		return data.Page.FilePathStem + ".html", true
	}
	if data == nil || data.Permalink == nil {
		return "", false
	}
	return *data.Permalink, true
}
