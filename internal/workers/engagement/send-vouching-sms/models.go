// internal/workers/engagement/send-vouching-sms/models.go
package sendvouchingsms

type Input struct {
	ApplicantMobile string `json:"applicantMobile"`
	ApplicantName   string `json:"applicantName"`
	VoucherPhone    string `json:"voucherPhone"`
}

type Output struct {
	VouchRequested bool   `json:"vouchRequested"`
	Message        string `json:"message"`
}
