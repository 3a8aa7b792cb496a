// Package domain contains entities without logic, just meta-data.
package domain

type UserID string

// Identity is decoded once from the handshake credential and is
// immutable for the lifetime of its connection.
type Identity struct {
	ID   UserID `json:"userId"`
	Name string `json:"userName"`
	Role string `json:"role,omitempty"`
}
