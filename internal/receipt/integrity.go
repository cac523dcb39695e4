package receipt

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"studentpay-backend/internal/models"
)

// VerifyPath is the public endpoint a receipt QR code points at
const VerifyPath = "/verify"

// ComputeHash derives the receipt hash from the payer email, the canonical YYYY-MM-DD
// payment date and the provider transaction id, concatenated in that order.
func ComputeHash(customerEmail, datePaid string, txnID int64) string {
	sum := sha256.Sum256([]byte(customerEmail + datePaid + strconv.FormatInt(txnID, 10)))
	return hex.EncodeToString(sum[:])
}

// BuildVerifyURL joins base and the verify path without producing a double slash
func BuildVerifyURL(baseURL, hash string) string {
	return strings.TrimRight(baseURL, "/") + VerifyPath + "?hash=" + url.QueryEscape(hash)
}

// Integrity binds the public site URL receipts link back to
type Integrity struct {
	baseURL string
}

func NewIntegrity(baseURL string) *Integrity {
	return &Integrity{baseURL: baseURL}
}

func (i *Integrity) Hash(id models.ReceiptIdentity) string {
	return ComputeHash(id.CustomerEmail, id.DatePaid, id.TxnID)
}

func (i *Integrity) VerifyURL(hash string) string {
	return BuildVerifyURL(i.baseURL, hash)
}
