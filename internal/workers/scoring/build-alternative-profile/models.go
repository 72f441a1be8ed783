// internal/workers/scoring/build-alternative-profile/models.go
package buildalternativeprofile

import "kredmitra/internal/models"

type Input struct {
	Aadhaar string `json:"aadhaar"`
	Pincode string `json:"pincode"`
}

// Output carries the integrated profile and the pincode whose geospatial
// record was used, which differs from the input when it has no coverage.
type Output struct {
	IntegratedProfile *models.IntegratedProfile `json:"integratedProfile"`
	ResolvedPincode   string                    `json:"resolvedPincode"`
}
