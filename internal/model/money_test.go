package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Reward Money `json:"reward"`
	}{Pounds(5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"reward":5}` {
		t.Errorf("got %s", data)
	}

	var got struct {
		Cost Money `json:"cost"`
	}
	if err := json.Unmarshal([]byte(`{"cost": 2.35}`), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Cost != 235 {
		t.Errorf("cost = %d pence, want 235", got.Cost)
	}
	if got.Cost.String() != "2.35" {
		t.Errorf("string = %q", got.Cost.String())
	}
}

func TestMoneyRejectsString(t *testing.T) {
	var m Money
	if err := json.Unmarshal([]byte(`"5"`), &m); err == nil {
		t.Fatal("expected error for string amount")
	}
}

func TestCredentialsExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		c    Credentials
		want bool
	}{
		{"no token", Credentials{}, true},
		{"no expiry", Credentials{GoogleAccessToken: "a"}, false},
		{"expired", Credentials{GoogleAccessToken: "a", GoogleTokenExpiry: &past}, true},
		{"valid", Credentials{GoogleAccessToken: "a", GoogleTokenExpiry: &future}, false},
	}
	for _, tt := range tests {
		if got := tt.c.Expired(now); got != tt.want {
			t.Errorf("%s: Expired = %v, want %v", tt.name, got, tt.want)
		}
	}
}
