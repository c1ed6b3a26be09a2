package websocket

import (
	"encoding/json"

	"github.com/dukerupert/famorg/internal/model"
)

const (
	TypeChoreCompleted   = "CHORE_COMPLETED"
	TypeChoreUncompleted = "CHORE_UNCOMPLETED"
	TypeRewardRedeemed   = "REWARD_REDEEMED"
	TypeDashboardRefresh = "DASHBOARD_REFRESH"
)

// Message is a real-time notification. It encodes as a flat JSON object:
// {"type": ..., <fields>...}.
type Message struct {
	Type   string
	Fields map[string]any
}

func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Fields)+1)
	for k, v := range m.Fields {
		out[k] = v
	}
	out["type"] = m.Type
	return json.Marshal(out)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Type, _ = raw["type"].(string)
	delete(raw, "type")
	m.Fields = raw
	return nil
}

// ChoreCompleted reports a completion. reward is points for standard chores
// and money for bonus chores.
func ChoreCompleted(choreID, userID int64, isBonus bool, reward any) Message {
	return Message{Type: TypeChoreCompleted, Fields: map[string]any{
		"chore_id": choreID,
		"user_id":  userID,
		"is_bonus": isBonus,
		"reward":   reward,
	}}
}

func ChoreUncompleted(choreID int64) Message {
	return Message{Type: TypeChoreUncompleted, Fields: map[string]any{"chore_id": choreID}}
}

func RewardRedeemed(rewardID, userID int64, cost model.Money) Message {
	return Message{Type: TypeRewardRedeemed, Fields: map[string]any{
		"reward_id": rewardID,
		"user_id":   userID,
		"cost":      cost,
	}}
}

func DashboardRefresh(userID int64) Message {
	return Message{Type: TypeDashboardRefresh, Fields: map[string]any{"user_id": userID}}
}
