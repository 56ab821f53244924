// Package catalog loads the dish asset store and exposes a read-only view
// of dishes, menu categories, and the weekly selection. The store is a
// folder per dish: price.txt, description.txt, what_you_get.txt,
// what_you_need.txt, photo.jpg. It is loaded once before serving begins
// and never mutated afterwards.
package catalog

import "github.com/shopspring/decimal"

// Dish is a single orderable item. ID doubles as the display name and
// matches the asset folder name.
type Dish struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Description string
	WhatYouGet  string
	WhatYouNeed string
	PhotoPath   string
}

// Section is a named menu category in display order.
type Section struct {
	Name   string
	Dishes []Dish
}
