package models

type TelecomFeatures struct {
	SimStabilityScore   float64 `json:"simStabilityScore"`   // 0-1
	RechargeConsistency float64 `json:"rechargeConsistency"` // 0-1
	DataUsageProfile    string  `json:"dataUsageProfile"`    // Low | Medium | High
}

type UtilityFeatures struct {
	PaymentDisciplineScore float64 `json:"paymentDisciplineScore"`
	ActiveServices         int     `json:"activeServices"`
}

type BankingFeatures struct {
	IncomePredictability float64 `json:"incomePredictability"`
	SavingsCapacity      float64 `json:"savingsCapacity"`
	TransactionProfile   string  `json:"transactionProfile"` // Stable | Volatile
}

type GeospatialFeatures struct {
	SeasonalOutlook             string  `json:"seasonalOutlook"`
	DemographicProfile          string  `json:"demographicProfile"`
	LocalEconomicDriver         string  `json:"localEconomicDriver"`
	AvgIncomeBracket            string  `json:"avgIncomeBracket"`
	EnvironmentalRiskScore      float64 `json:"environmentalRiskScore"`
	LocalEconomicStabilityScore float64 `json:"localEconomicStabilityScore"`
}

type ReferenceRecord struct {
	GroupName        string     `json:"groupName,omitempty"`
	ReferenceContact *Reference `json:"referenceContact,omitempty"`
}

// IntegratedProfile merges the features extracted from every alternative
// data source for one applicant.
type IntegratedProfile struct {
	Telecom    TelecomFeatures    `json:"telecom"`
	Utility    UtilityFeatures    `json:"utility"`
	Banking    BankingFeatures    `json:"banking"`
	Geospatial GeospatialFeatures `json:"geospatial"`
	Reference  ReferenceRecord    `json:"reference"`
}
