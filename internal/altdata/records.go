package altdata

import (
	"context"
	"errors"

	"kredmitra/internal/models"
)

// ErrRecordNotFound is returned when a source holds no record for the key.
var ErrRecordNotFound = errors.New("alternative data record not found")

// Source returns encrypted payloads keyed by Aadhaar number (or pincode for
// geospatial data).
type Source interface {
	Telecom(ctx context.Context, userID string) (string, error)
	Utility(ctx context.Context, userID string) (string, error)
	Banking(ctx context.Context, userID string) (string, error)
	Reference(ctx context.Context, userID string) (string, error)
	Geospatial(ctx context.Context, pincode string) (string, error)
	// Pincodes lists the pincodes with geospatial coverage, in priority order.
	Pincodes() []string
}

type TelecomRecord struct {
	SimAgeDays      int       `json:"simAgeDays"`
	RechargeHistory []float64 `json:"rechargeHistory"`
	DataUsageMB     float64   `json:"dataUsageMb"`
}

type UtilityRecord struct {
	Provider       string   `json:"provider"`
	PaymentHistory []string `json:"paymentHistory"`
	ActiveServices int      `json:"activeServices"`
}

type Transaction struct {
	Type   string  `json:"type"` // CREDIT | DEBIT
	Amount float64 `json:"amount"`
	Desc   string  `json:"desc"`
}

type BankingRecord struct {
	AccountType  string        `json:"accountType"`
	Transactions []Transaction `json:"transactions"`
}

type GeospatialRecord struct {
	SeasonalOutlook     string `json:"seasonalOutlook"`
	DemographicProfile  string `json:"demographicProfile"`
	LocalEconomicDriver string `json:"localEconomicDriver"`
	AvgIncomeBracket    string `json:"avgIncomeBracket"`
}

const (
	PaidOnTime = "PAID_ON_TIME"
	PaidLate   = "PAID_LATE"
	Credit     = "CREDIT"
	Debit      = "DEBIT"
)

// TestUserID is the Aadhaar number with a complete set of mock records.
const TestUserID = "123412341234"

// MemorySource is the built-in mock data set.
type MemorySource struct {
	telecom    map[string]string
	utility    map[string]string
	banking    map[string]string
	reference  map[string]string
	geospatial map[string]string
	pincodes   []string
}

// NewMockSource returns the encrypted demo records.
func NewMockSource() *MemorySource {
	s := &MemorySource{
		telecom:    map[string]string{},
		utility:    map[string]string{},
		banking:    map[string]string{},
		reference:  map[string]string{},
		geospatial: map[string]string{},
	}

	s.telecom[TestUserID] = mustEncrypt(TelecomRecord{
		SimAgeDays:      1250,
		RechargeHistory: []float64{499, 499, 299, 499, 299, 499},
		DataUsageMB:     15000,
	})
	s.utility[TestUserID] = mustEncrypt(UtilityRecord{
		Provider:       "Maharashtra State Electricity Distribution Co. Ltd.",
		PaymentHistory: []string{PaidOnTime, PaidOnTime, PaidLate, PaidOnTime, PaidOnTime, PaidOnTime},
		ActiveServices: 2,
	})
	s.banking[TestUserID] = mustEncrypt(BankingRecord{
		AccountType: "Savings",
		Transactions: []Transaction{
			{Type: Credit, Amount: 8000, Desc: "FARM_SALE"},
			{Type: Debit, Amount: 2000, Desc: "SUPPLIES"},
			{Type: Credit, Amount: 7500, Desc: "FARM_SALE"},
			{Type: Debit, Amount: 3000, Desc: "HOUSEHOLD"},
			{Type: Debit, Amount: 1500, Desc: "UTILITY_BILL"},
			{Type: Credit, Amount: 500, Desc: "INTEREST"},
		},
	})
	s.reference[TestUserID] = mustEncrypt(models.ReferenceRecord{
		GroupName:        "Pragati SHG",
		ReferenceContact: &models.Reference{Name: "Suresh Patil", Relationship: "Fellow Farmer"},
	})

	s.AddGeospatial("413521", GeospatialRecord{
		SeasonalOutlook:     "Positive Monsoon Forecast",
		DemographicProfile:  "Rural, Agriculture-Dominant",
		LocalEconomicDriver: "Agriculture (Soybean, Sugarcane)",
		AvgIncomeBracket:    "Low-to-Mid",
	})
	s.AddGeospatial("560001", GeospatialRecord{
		SeasonalOutlook:     "Stable Urban Climate",
		DemographicProfile:  "High-density, Mixed-Income Urban",
		LocalEconomicDriver: "IT Services, Gig Economy",
		AvgIncomeBracket:    "Mid-to-High",
	})
	return s
}

// AddGeospatial registers an encrypted geospatial record for pincode.
func (s *MemorySource) AddGeospatial(pincode string, rec GeospatialRecord) {
	if _, ok := s.geospatial[pincode]; !ok {
		s.pincodes = append(s.pincodes, pincode)
	}
	s.geospatial[pincode] = mustEncrypt(rec)
}

func lookup(m map[string]string, key string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return "", ErrRecordNotFound
}

func (s *MemorySource) Telecom(_ context.Context, userID string) (string, error) {
	return lookup(s.telecom, userID)
}

func (s *MemorySource) Utility(_ context.Context, userID string) (string, error) {
	return lookup(s.utility, userID)
}

func (s *MemorySource) Banking(_ context.Context, userID string) (string, error) {
	return lookup(s.banking, userID)
}

func (s *MemorySource) Reference(_ context.Context, userID string) (string, error) {
	return lookup(s.reference, userID)
}

func (s *MemorySource) Geospatial(_ context.Context, pincode string) (string, error) {
	return lookup(s.geospatial, pincode)
}

func (s *MemorySource) Pincodes() []string {
	out := make([]string, len(s.pincodes))
	copy(out, s.pincodes)
	return out
}
