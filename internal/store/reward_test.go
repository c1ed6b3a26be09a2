package store

import (
	"errors"
	"testing"

	"github.com/dukerupert/famorg/internal/model"
)

func TestRewardRedeem(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	rs := NewRewardStore(db)
	kid := createUser(t, us, "kid@example.com", "")
	db.Exec(`UPDATE users SET balance_pence = 700 WHERE id = ?`, kid.ID)

	r, err := rs.Create("Cinema", "", model.Pounds(5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	redeemed, remaining, err := rs.Redeem(r.ID, kid.ID)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !redeemed.IsRedeemed || remaining != model.Pounds(2) {
		t.Errorf("redeemed=%v remaining=%v", redeemed.IsRedeemed, remaining)
	}

	if _, _, err := rs.Redeem(r.ID, kid.ID); !errors.Is(err, ErrRewardRedeemed) {
		t.Errorf("second redeem err = %v, want ErrRewardRedeemed", err)
	}
}

func TestRewardRedeemInsufficientFunds(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	rs := NewRewardStore(db)
	kid := createUser(t, us, "kid@example.com", "")
	r, _ := rs.Create("Bike", "", model.Pounds(100))

	if _, _, err := rs.Redeem(r.ID, kid.ID); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	got, _ := rs.GetByID(r.ID)
	if got.IsRedeemed {
		t.Error("reward should remain unredeemed")
	}
	if _, _, err := rs.Redeem(999, kid.ID); !errors.Is(err, ErrRewardNotFound) {
		t.Errorf("err = %v, want ErrRewardNotFound", err)
	}
}
