package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadges(t *testing.T) {
	badges := Badges(BadgeOnboarding)
	assert.Len(t, badges, 5)
	assert.True(t, badges[0].Achieved)
	assert.False(t, badges[1].Achieved)
	assert.Equal(t, "First Loan Approved", badges[1].Title)

	Achieve(badges, BadgeApproval)
	assert.True(t, badges[1].Achieved)

	// the catalog itself is never mutated
	assert.False(t, Badges()[1].Achieved)
}

func TestSelectedLoanProgress(t *testing.T) {
	tests := []struct {
		name     string
		loan     SelectedLoan
		expected float64
	}{
		{"zero amount", SelectedLoan{}, 0},
		{"half", SelectedLoan{LoanOption: LoanOption{Amount: 5000}, Repaid: 2500}, 0.5},
		{"over repaid", SelectedLoan{LoanOption: LoanOption{Amount: 5000}, Repaid: 7000}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.loan.Progress(), 1e-9)
		})
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 300, ClampScore(120))
	assert.Equal(t, 850, ClampScore(900))
	assert.Equal(t, 712, ClampScore(712))
}

func TestUserDataIsFarmer(t *testing.T) {
	assert.True(t, (&UserData{Profession: ProfessionFarmer}).IsFarmer())
	assert.False(t, (&UserData{Profession: ProfessionGigWorker}).IsFarmer())
}

func TestUserRecordPublic(t *testing.T) {
	u := &UserRecord{FirstName: "LIVIA", LastName: "ROSE", PasswordHash: "hash"}
	pub := u.Public()
	assert.Empty(t, pub.PasswordHash)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.Equal(t, "LIVIA ROSE", u.FullName())
}
