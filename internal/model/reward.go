package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Cost        Money     `json:"cost"`
	IsRedeemed  bool      `json:"is_redeemed"`
	RedeemerID  *int64    `json:"redeemer_id"`
	CreatedAt   time.Time `json:"created_at"`
}
