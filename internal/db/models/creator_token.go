package models

import "time"

// CreatorToken binds a creator wallet to its reward token mint on the
// ledger. One row per creator, created once when the creator is
// onboarded to the reward program and immutable afterwards.
type CreatorToken struct {
	Creator      string    `db:"creator" json:"creator"`
	Mint         string    `db:"mint" json:"mint"`
	TokenAddress string    `db:"token_address" json:"token_address"`
	MintBump     int       `db:"mint_bump" json:"mint_bump"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
