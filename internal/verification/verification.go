// Package verification holds the mock identity database applicants are
// checked against before scoring.
package verification

import "strings"

// Identity is one row of the mock verification database.
type Identity struct {
	Name          string `json:"name"`
	Aadhaar       string `json:"aadhaar"`
	Phone         string `json:"phone"`
	AccountNumber string `json:"accountNumber"`
}

var testDB = []Identity{
	{Name: "Ramesh Kumar", Aadhaar: "123412341234", Phone: "9876543210", AccountNumber: "112233445566"},
	{Name: "Priya Singh", Aadhaar: "432143214321", Phone: "9876543211", AccountNumber: "998877665544"},
}

// Identities returns a copy of the test identity set.
func Identities() []Identity {
	out := make([]Identity, len(testDB))
	copy(out, testDB)
	return out
}

// VerifyUser reports whether the tuple matches one test identity. Name is
// compared case-insensitively; every field is trimmed and must be non-empty.
func VerifyUser(name, aadhaar, phone, accountNumber string) bool {
	name = strings.TrimSpace(name)
	aadhaar = strings.TrimSpace(aadhaar)
	phone = strings.TrimSpace(phone)
	accountNumber = strings.TrimSpace(accountNumber)
	if name == "" || aadhaar == "" || phone == "" || accountNumber == "" {
		return false
	}

	for _, id := range testDB {
		if strings.EqualFold(id.Name, name) &&
			id.Aadhaar == aadhaar &&
			id.Phone == phone &&
			id.AccountNumber == accountNumber {
			return true
		}
	}
	return false
}
