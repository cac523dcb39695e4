package models

// ReceiptIdentity is the triple a receipt hash is derived from. Nothing else feeds the hash.
type ReceiptIdentity struct {
	CustomerEmail string
	DatePaid      string // canonical YYYY-MM-DD
	TxnID         int64
}

// ReceiptRequest is everything the composer needs to lay out one receipt page.
// Image sources are URLs or local paths; empty means the slot is left blank.
type ReceiptRequest struct {
	DepartmentName     string
	Header             string
	SchoolLogo         string
	DepartmentLogo     string
	PresidentSignature string
	SecretarySignature string
	DatePaid           string
	ReceivedFrom       string
	PaymentFor         string
	Amount             int64  // kobo
	AmountInWords      string // optional override
	Identity           ReceiptIdentity
}

// ReceiptLayout records the sizing decisions taken while composing a receipt
type ReceiptLayout struct {
	HeaderFontSize    float64  `json:"header_font_size"`
	HeaderLines       []string `json:"header_lines"`
	WatermarkFontSize float64  `json:"watermark_font_size"`
	WatermarkLines    []string `json:"watermark_lines"`
	BodyLines         int      `json:"body_lines"`
	QRSize            float64  `json:"qr_size"`
	QRFlipped         bool     `json:"qr_flipped"`
	OmittedImages     []string `json:"omitted_images,omitempty"`
}

type ReceiptDocument struct {
	PDF       []byte
	Hash      string
	VerifyURL string
	Layout    ReceiptLayout
}

const (
	VerificationValid   = "valid"
	VerificationInvalid = "invalid"
)

// VerificationResult is the public answer for GET /verify
type VerificationResult struct {
	Status        string `json:"status"`
	TransactionID int64  `json:"transaction_id,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	Date          string `json:"date,omitempty"`
	Department    string `json:"department,omitempty"`
}

// IsValid reports whether the hash matched a receipted transaction
func (v *VerificationResult) IsValid() bool {
	return v != nil && v.Status == VerificationValid
}
