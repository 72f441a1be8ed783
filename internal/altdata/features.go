package altdata

import (
	"math"
	"strings"

	"kredmitra/internal/models"
)

const simStabilityHorizonDays = 1095 // three years

func ExtractTelecomFeatures(r TelecomRecord) models.TelecomFeatures {
	f := models.TelecomFeatures{
		SimStabilityScore:   math.Min(float64(r.SimAgeDays)/simStabilityHorizonDays, 1),
		RechargeConsistency: rechargeConsistency(r.RechargeHistory),
		DataUsageProfile:    "Low",
	}
	switch {
	case r.DataUsageMB > 20000:
		f.DataUsageProfile = "High"
	case r.DataUsageMB > 10000:
		f.DataUsageProfile = "Medium"
	}
	return f
}

// rechargeConsistency is 1 - coefficient of variation (population sigma),
// floored at 0.
func rechargeConsistency(history []float64) float64 {
	if len(history) == 0 {
		return 0
	}
	var sum float64
	for _, v := range history {
		sum += v
	}
	mean := sum / float64(len(history))
	if mean == 0 {
		return 0
	}
	var sq float64
	for _, v := range history {
		sq += (v - mean) * (v - mean)
	}
	sigma := math.Sqrt(sq / float64(len(history)))
	return math.Max(1-sigma/mean, 0)
}

func ExtractUtilityFeatures(r UtilityRecord) models.UtilityFeatures {
	f := models.UtilityFeatures{ActiveServices: r.ActiveServices}
	if len(r.PaymentHistory) == 0 {
		return f
	}
	onTime := 0
	for _, p := range r.PaymentHistory {
		if p == PaidOnTime {
			onTime++
		}
	}
	f.PaymentDisciplineScore = float64(onTime) / float64(len(r.PaymentHistory))
	return f
}

func ExtractBankingFeatures(r BankingRecord) models.BankingFeatures {
	var credits int
	var totalCredit, totalDebit float64
	for _, t := range r.Transactions {
		switch t.Type {
		case Credit:
			credits++
			totalCredit += t.Amount
		case Debit:
			totalDebit += t.Amount
		}
	}

	f := models.BankingFeatures{IncomePredictability: 0.4, TransactionProfile: "Volatile"}
	if credits >= 2 {
		f.IncomePredictability = 0.8
	}
	if totalCredit > 0 {
		f.SavingsCapacity = math.Max((totalCredit-totalDebit)/totalCredit, 0)
	}
	if f.SavingsCapacity > 0.2 {
		f.TransactionProfile = "Stable"
	}
	return f
}

func ExtractGeospatialFeatures(r GeospatialRecord) models.GeospatialFeatures {
	f := models.GeospatialFeatures{
		SeasonalOutlook:             r.SeasonalOutlook,
		DemographicProfile:          r.DemographicProfile,
		LocalEconomicDriver:         r.LocalEconomicDriver,
		AvgIncomeBracket:            r.AvgIncomeBracket,
		EnvironmentalRiskScore:      0.75,
		LocalEconomicStabilityScore: 0.5,
	}
	if strings.Contains(strings.ToLower(r.SeasonalOutlook), "positive") {
		f.EnvironmentalRiskScore = 0.25
	}
	// more than one named driver reads as a diversified economy
	if strings.Contains(r.LocalEconomicDriver, ",") {
		f.LocalEconomicStabilityScore = 0.8
	}
	return f
}
