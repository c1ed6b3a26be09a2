package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/famorg/internal/apperr"
	"github.com/dukerupert/famorg/internal/model"
)

var (
	ErrRewardNotFound    = apperr.NotFound("reward_not_found", "reward not found")
	ErrRewardRedeemed    = apperr.Conflict("reward_redeemed", "reward already redeemed")
	ErrInsufficientFunds = apperr.Conflict("insufficient_funds", "not enough money")
	ErrUserNotFound      = apperr.NotFound("user_not_found", "user not found")
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var redeemed int
	var redeemer sql.NullInt64
	if err := scanner.Scan(&r.ID, &r.Title, &r.Description, &r.Cost, &redeemed, &redeemer, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.IsRedeemed = redeemed != 0
	r.RedeemerID = int64Ptr(redeemer)
	return &r, nil
}

const rewardCols = `id, title, description, cost_pence, is_redeemed, redeemer_id, created_at`

func (s *RewardStore) Create(title, description string, cost model.Money) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (title, description, cost_pence) VALUES (?, ?, ?)`,
		title, description, cost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns all rewards, unredeemed first, then by title.
func (s *RewardStore) List() ([]model.Reward, error) {
	rows, err := s.db.Query(`SELECT ` + rewardCols + ` FROM rewards ORDER BY is_redeemed ASC, title ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// Redeem marks the reward redeemed by userID and deducts its cost from the
// user's balance. It returns the remaining balance.
func (s *RewardStore) Redeem(rewardID, userID int64) (*model.Reward, model.Money, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	r, err := scanReward(tx.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, rewardID))
	if err == sql.ErrNoRows {
		return nil, 0, ErrRewardNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get reward: %w", err)
	}
	if r.IsRedeemed {
		return nil, 0, ErrRewardRedeemed
	}

	var balance model.Money
	err = tx.QueryRow(`SELECT balance_pence FROM users WHERE id = ?`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return nil, 0, ErrUserNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get balance: %w", err)
	}
	if balance < r.Cost {
		return nil, 0, ErrInsufficientFunds
	}

	if _, err := tx.Exec(`UPDATE users SET balance_pence = balance_pence - ? WHERE id = ?`, r.Cost, userID); err != nil {
		return nil, 0, fmt.Errorf("debit balance: %w", err)
	}
	if _, err := tx.Exec(`UPDATE rewards SET is_redeemed = 1, redeemer_id = ? WHERE id = ?`, userID, rewardID); err != nil {
		return nil, 0, fmt.Errorf("mark redeemed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit: %w", err)
	}

	r.IsRedeemed = true
	r.RedeemerID = &userID
	return r, balance - r.Cost, nil
}
