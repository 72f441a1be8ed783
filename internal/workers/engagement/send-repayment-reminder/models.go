// internal/workers/engagement/send-repayment-reminder/models.go
package sendrepaymentreminder

// Input carries the process variables set when a loan is accepted. Only
// mobile is required.
type Input struct {
	Mobile    string  `json:"mobile"`
	FirstName string  `json:"firstName,omitempty"`
	LoanName  string  `json:"loanName,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
}

type Output struct {
	ReminderSent bool   `json:"reminderSent"`
	Message      string `json:"message"`
}
