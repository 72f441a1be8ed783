package altdata

import (
	"context"
	"errors"
	"fmt"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/models"
)

// ResolvePincode returns pincode when the source covers it, otherwise the
// first covered pincode.
func ResolvePincode(source Source, pincode string) string {
	known := source.Pincodes()
	for _, p := range known {
		if p == pincode {
			return p
		}
	}
	if len(known) > 0 {
		return known[0]
	}
	return pincode
}

// BuildIntegratedProfile decrypts all five records for the applicant and
// runs the feature extractors. A missing record yields a
// MOCK_RECORD_NOT_FOUND error naming the user.
func BuildIntegratedProfile(ctx context.Context, source Source, aadhaar, pincode string) (*models.IntegratedProfile, error) {
	var (
		telecom   TelecomRecord
		utility   UtilityRecord
		banking   BankingRecord
		geo       GeospatialRecord
		reference models.ReferenceRecord
	)

	geoPincode := ResolvePincode(source, pincode)
	fetches := []struct {
		name  string
		fetch func(context.Context, string) (string, error)
		key   string
		into  interface{}
	}{
		{"telecom", source.Telecom, aadhaar, &telecom},
		{"utility", source.Utility, aadhaar, &utility},
		{"banking", source.Banking, aadhaar, &banking},
		{"geospatial", source.Geospatial, geoPincode, &geo},
		{"reference", source.Reference, aadhaar, &reference},
	}

	for _, f := range fetches {
		payload, err := f.fetch(ctx, f.key)
		if errors.Is(err, ErrRecordNotFound) {
			return nil, commonerrors.NewMockRecordNotFoundError(aadhaar)
		}
		if err != nil {
			return nil, fmt.Errorf("fetch %s record: %w", f.name, err)
		}
		if err := Decrypt(payload, f.into); err != nil {
			return nil, fmt.Errorf("decrypt %s record: %w", f.name, err)
		}
	}

	return &models.IntegratedProfile{
		Telecom:    ExtractTelecomFeatures(telecom),
		Utility:    ExtractUtilityFeatures(utility),
		Banking:    ExtractBankingFeatures(banking),
		Geospatial: ExtractGeospatialFeatures(geo),
		Reference:  reference,
	}, nil
}
