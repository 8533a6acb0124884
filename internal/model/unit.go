package model

import "github.com/twpayne/go-geom"

// Unit is a polygonal census or administrative area whose population is
// split across the settlements it contains.
type Unit struct {
	ID         int64  `json:"id"`
	Population int    `json:"population" validate:"gt=0"`
	Geometry   geom.T `json:"-" validate:"-"`
}
