package model

import "github.com/twpayne/go-geom"

// AgglomerationType distinguishes single-anchor from multi-anchor areas.
type AgglomerationType string

const (
	Monocentric AgglomerationType = "Monocentric"
	Polycentric AgglomerationType = "Polycentric"
)

// Agglomeration is a contiguous urbanised area grown around one or more
// anchor settlements.
type Agglomeration struct {
	Name       string            `json:"name"`
	CoreCities []string          `json:"core_cities"`
	Type       AgglomerationType `json:"type"`
	Population int               `json:"population"`
	Level      int               `json:"level"`
	Geometry   *geom.Polygon     `json:"-"`
}

// MembershipStatus is a settlement's relation to the agglomerations.
type MembershipStatus string

const (
	StatusCenter  MembershipStatus = "center"
	StatusMember  MembershipStatus = "member"
	StatusOutside MembershipStatus = "outside"
)

// Membership records which agglomeration, if any, a settlement belongs to.
type Membership struct {
	SettlementID  int64            `json:"settlement_id"`
	Name          string           `json:"name"`
	Status        MembershipStatus `json:"status"`
	Agglomeration string           `json:"agglomeration,omitempty"`
	Level         int              `json:"level"`
}

// FrameArea is one named polygon of the settlement-network tessellation.
type FrameArea struct {
	Name        string        `json:"name"`
	Community   int           `json:"community"`
	Population  int           `json:"population"`
	Settlements []int64       `json:"settlements"`
	Geometry    *geom.Polygon `json:"-"`
}
