// Package community stores who vouches for whom in the reference graph.
package community

import (
	"context"
	"strings"
	"time"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/graph"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/validation"
	"kredmitra/internal/models"
	"kredmitra/internal/notify"
)

const (
	recordReferenceCypher = `
MERGE (a:Person {mobile: $applicant})
  ON CREATE SET a.name = $applicantName
MERGE (r:Person {key: $refKey})
  ON CREATE SET r.name = $refName
MERGE (r)-[v:VOUCHES_FOR]->(a)
SET v.relationship = $relationship, v.confirmed = false, v.recordedAt = $at`

	recordVouchCypher = `
MERGE (a:Person {mobile: $applicant})
MERGE (r:Person {mobile: $voucher})
MERGE (r)-[v:VOUCHES_FOR]->(a)
SET v.relationship = coalesce($relationship, v.relationship), v.confirmed = $confirmed OR coalesce(v.confirmed, false), v.recordedAt = $at`

	referencesCypher = `
MATCH (r:Person)-[v:VOUCHES_FOR]->(a:Person {mobile: $applicant})
RETURN coalesce(r.name, '') AS name, coalesce(r.mobile, '') AS mobile,
       coalesce(v.relationship, '') AS relationship, coalesce(v.confirmed, false) AS confirmed
ORDER BY confirmed DESC, name`
)

// Vouch is one incoming VOUCHES_FOR edge.
type Vouch struct {
	Name         string `json:"name,omitempty"`
	Mobile       string `json:"mobile,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Confirmed    bool   `json:"confirmed"`
}

type SMSWriter interface {
	GenerateVouchingSMS(ctx context.Context, name string) string
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (*notify.Receipt, error)
}

type Service struct {
	graph  graph.Client
	writer SMSWriter
	sms    SMSSender
	logger logger.Logger
	now    func() time.Time
}

func NewService(client graph.Client, writer SMSWriter, sms SMSSender, log logger.Logger) *Service {
	return &Service{graph: client, writer: writer, sms: sms, logger: log, now: time.Now}
}

// referenceKey identifies a reference known only by name, scoped to the
// applicant who named them.
func referenceKey(applicant, name string) string {
	return applicant + ":" + strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// RecordReference stores an unconfirmed reference named during onboarding.
func (s *Service) RecordReference(ctx context.Context, applicantMobile, applicantName string, ref models.Reference) error {
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return commonerrors.NewValidationError("reference name is required")
	}

	_, err := s.graph.ExecuteWrite(ctx, recordReferenceCypher, map[string]any{
		"applicant":     applicantMobile,
		"applicantName": applicantName,
		"refKey":        referenceKey(applicantMobile, name),
		"refName":       name,
		"relationship":  strings.TrimSpace(ref.Relationship),
		"at":            s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return commonerrors.NewDatabaseError("record reference", err)
	}
	return nil
}

// RecordVouch confirms that voucher vouches for applicant.
func (s *Service) RecordVouch(ctx context.Context, voucherMobile, applicantMobile, relationship string) error {
	return s.vouch(ctx, voucherMobile, applicantMobile, relationship, true)
}

func (s *Service) vouch(ctx context.Context, voucher, applicant, relationship string, confirmed bool) error {
	if !validation.ValidateMobile(voucher) || !validation.ValidateMobile(applicant) {
		return commonerrors.NewValidationError("mobile numbers must be exactly 10 digits")
	}
	if voucher == applicant {
		return commonerrors.NewValidationError("applicants cannot vouch for themselves")
	}

	var rel any
	if r := strings.TrimSpace(relationship); r != "" {
		rel = r
	}
	_, err := s.graph.ExecuteWrite(ctx, recordVouchCypher, map[string]any{
		"applicant":    applicant,
		"voucher":      voucher,
		"relationship": rel,
		"confirmed":    confirmed,
		"at":           s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return commonerrors.NewDatabaseError("record vouch", err)
	}
	return nil
}

// References lists everyone vouching for mobile, confirmed first.
func (s *Service) References(ctx context.Context, mobile string) ([]Vouch, error) {
	res, err := s.graph.ExecuteRead(ctx, referencesCypher, map[string]any{"applicant": mobile})
	if err != nil {
		return nil, commonerrors.NewDatabaseError("list references", err)
	}

	out := make([]Vouch, 0, len(res.Records))
	for _, rec := range res.Records {
		confirmed, _ := rec["confirmed"].(bool)
		out = append(out, Vouch{
			Name:         rec.String("name"),
			Mobile:       rec.String("mobile"),
			Relationship: rec.String("relationship"),
			Confirmed:    confirmed,
		})
	}
	return out, nil
}

// RequestVouch texts voucherPhone asking them to confirm the applicant and
// records the pending edge. It returns the message sent.
func (s *Service) RequestVouch(ctx context.Context, applicantMobile, applicantName, voucherPhone string) (string, error) {
	if err := s.vouch(ctx, voucherPhone, applicantMobile, "", false); err != nil {
		return "", err
	}

	msg := s.writer.GenerateVouchingSMS(ctx, applicantName)
	if _, err := s.sms.SendSMS(ctx, voucherPhone, msg); err != nil {
		return "", err
	}
	s.logger.Info("Vouch requested", map[string]interface{}{
		"applicant": applicantMobile,
		"voucher":   voucherPhone,
	})
	return msg, nil
}
