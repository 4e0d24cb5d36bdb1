package notify

import (
	"encoding/json"
	"time"
)

// BudgetAlertMessage is the wire form of a budget-threshold event. The
// consumer fetches nothing further; the event carries everything the
// notification copy needs.
type BudgetAlertMessage struct {
	TotalExpenses float64   `json:"total_expenses"`
	Threshold     float64   `json:"threshold"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewBudgetAlertMessage(totalExpenses, threshold float64) BudgetAlertMessage {
	return BudgetAlertMessage{
		TotalExpenses: totalExpenses,
		Threshold:     threshold,
		Timestamp:     time.Now(),
	}
}

func (m BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return BudgetAlertMessage{}, err
	}
	return msg, nil
}
