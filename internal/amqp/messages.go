package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"cafereport/internal/core"
)

// ReportSubmittedMessage announces a report the sink confirmed. It carries
// the figures downstream consumers need without the individual rows.
type ReportSubmittedMessage struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"`
	StartingCash  float64   `json:"startingCash"`
	DailyIncome   float64   `json:"dailyIncome"`
	ExpenseCount  int       `json:"expenseCount"`
	TotalExpenses float64   `json:"totalExpenses"`
	Backend       string    `json:"backend"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewReportSubmittedMessage creates a message for the delivered payload
func NewReportSubmittedMessage(p core.ReportPayload, backend string) *ReportSubmittedMessage {
	return &ReportSubmittedMessage{
		ID:            uuid.NewString(),
		Date:          p.Date,
		StartingCash:  p.StartingCash,
		DailyIncome:   p.DailyIncome,
		ExpenseCount:  len(p.Expenses),
		TotalExpenses: p.TotalExpenses,
		Backend:       backend,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportSubmittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
