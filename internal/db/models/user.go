package models

import "time"

// User is a wallet-keyed profile with lifetime counters. Users are
// created lazily on first upload, payment or profile edit.
type User struct {
	WalletAddress     string    `db:"wallet_address" json:"wallet_address"`
	Username          *string   `db:"username" json:"username,omitempty"`
	ProfilePictureCID *string   `db:"profile_picture_cid" json:"profile_picture_cid,omitempty"`
	Bio               *string   `db:"bio" json:"bio,omitempty"`
	VideosUploaded    int64     `db:"videos_uploaded" json:"videos_uploaded"`
	VideosWatched     int64     `db:"videos_watched" json:"videos_watched"`
	TokensSpent       float64   `db:"tokens_spent" json:"tokens_spent"`
	TokensEarned      float64   `db:"tokens_earned" json:"tokens_earned"`
	TokensRefunded    float64   `db:"tokens_refunded" json:"tokens_refunded"`
	Twitter           *string   `db:"twitter" json:"twitter,omitempty"`
	Instagram         *string   `db:"instagram" json:"instagram,omitempty"`
	Website           *string   `db:"website" json:"website,omitempty"`
	IsCreator         bool      `db:"is_creator" json:"is_creator"`
	IsVerified        bool      `db:"is_verified" json:"is_verified"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName returns the username if set, otherwise a shortened wallet
// address of the form "AbCdEf...WxYz".
func (u *User) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return ShortenWallet(u.WalletAddress)
}

// ShortenWallet abbreviates a wallet address for display.
func ShortenWallet(wallet string) string {
	if len(wallet) <= 10 {
		return wallet
	}
	return wallet[:6] + "..." + wallet[len(wallet)-4:]
}
