// Package palette maps event categories to display colors. It is owned by
// the presentation side (web, CLI); the store never consults it.
package palette

import "juggle/internal/model"

// Color is a named display color.
type Color struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Default is used for categories outside the known set.
var Default = Color{Name: "gray", Hex: "#8E8E93"}

var byCategory = map[string]Color{
	model.CategoryPersonal:   {Name: "mint", Hex: "#00C7BE"},
	model.CategoryInterviews: {Name: "purple", Hex: "#AF52DE"},
	model.CategoryHackathons: {Name: "orange", Hex: "#FF9500"},
	model.CategoryTechEvents: {Name: "green", Hex: "#34C759"},
	model.CategoryCultural:   {Name: "pink", Hex: "#FF2D55"},
}

// For returns the color for a category, or Default.
func For(category string) Color {
	if c, ok := byCategory[category]; ok {
		return c
	}
	return Default
}

// Entry pairs a category with its color.
type Entry struct {
	Category string `json:"category"`
	Color    Color  `json:"color"`
}

// Table lists the known categories in picker order.
func Table() []Entry {
	out := make([]Entry, 0, len(model.Categories))
	for _, c := range model.Categories {
		out = append(out, Entry{Category: c, Color: For(c)})
	}
	return out
}
