package receipt

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/metrics"
	"studentpay-backend/internal/models"
	"studentpay-backend/internal/timeutil"
	"studentpay-backend/pkg/apperror"
)

// Page geometry in points, origin top-left
const (
	pageWidth    = 595.28
	pageHeight   = 841.89
	leftMargin   = 40.0
	rightMargin  = pageWidth - 40
	topMargin    = 40.0
	bottomMargin = 30.0

	logoSize = 72.0
	logoGap  = 16.0
	logoTop  = topMargin - 10

	headerBaseSize = 18.0
	headerMinSize  = 8.0
	headerBaseline = topMargin + 8

	bodyFontSize   = 10.0
	bodySpacing    = 20.0
	bodyRightSlack = 120.0

	signatureWidth  = 120.0
	signatureHeight = 40.0
	signatureRule   = 140.0
	signatureBottom = pageHeight - 110

	amountBoxWidth  = 160.0
	amountBoxHeight = 28.0
	amountBoxTop    = signatureBottom - signatureHeight - 10 - amountBoxHeight

	qrSize = 120.0
	qrGap  = 12.0

	watermarkBaseSize = 80.0
	watermarkMinSize  = 24.0
	watermarkAlpha    = 0.12
	watermarkAngle    = 30.0
)

const (
	slotSchoolLogo         = "school_logo"
	slotDepartmentLogo     = "department_logo"
	slotPresidentSignature = "president_signature"
	slotSecretarySignature = "secretary_signature"
	slotQR                 = "qr"
)

const (
	fontCore = "Helvetica"
	fontUTF8 = "DejaVu"
)

type ComposerConfig struct {
	SchoolLogoPath string
	// FontPath is an optional UTF-8 TTF used for the currency symbol
	FontPath string
}

// Composer lays a receipt out on a single A4 page
type Composer struct {
	images    *ImageLoader
	integrity *Integrity
	cfg       ComposerConfig
	logger    *logging.Logger
}

func NewComposer(images *ImageLoader, integrity *Integrity, cfg ComposerConfig, logger *logging.Logger) *Composer {
	return &Composer{
		images:    images,
		integrity: integrity,
		cfg:       cfg,
		logger:    logger.Named("receipt_composer"),
	}
}

// Compose renders req into a PDF together with its hash and verification URL.
// Missing optional images leave their slot blank. Missing text fields fail.
func (c *Composer) Compose(ctx context.Context, req *models.ReceiptRequest) (*models.ReceiptDocument, error) {
	start := time.Now()
	defer func() { metrics.ReceiptRenderDuration.Observe(time.Since(start).Seconds()) }()

	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := c.integrity.Hash(req.Identity)
	verifyURL := c.integrity.VerifyURL(hash)

	qr, err := qrcode.Encode(verifyURL, qrcode.Medium, 256)
	if err != nil {
		return nil, apperror.NewReceiptGenerationError("Problem encountered creating receipt QR code", err)
	}
	if qr, err = NormalizePNG(qr); err != nil {
		return nil, apperror.NewReceiptGenerationError("Problem encountered creating receipt QR code", err)
	}

	images := c.images.LoadAll(ctx, map[string]string{
		slotSchoolLogo:         c.cfg.SchoolLogoPath,
		slotDepartmentLogo:     req.DepartmentLogo,
		slotPresidentSignature: req.PresidentSignature,
		slotSecretarySignature: req.SecretarySignature,
	})

	p := c.newPage(ctx, req.Identity.DatePaid, hash)
	layout := models.ReceiptLayout{}

	p.drawLogos(images)
	headerBottom := p.drawHeader(headerText(req), &layout)
	if err := p.drawBody(req, headerBottom, &layout); err != nil {
		return nil, err
	}
	p.drawSignatures(images)
	boxX := p.drawAmountBox(req.Amount)
	if !p.drawQR(qr, boxX, &layout) {
		return nil, apperror.NewReceiptGenerationError("Problem encountered creating receipt QR code", p.pdf.Error())
	}
	p.drawHashLine(hash)
	p.drawWatermark(watermarkText(req), &layout)

	if p.pdf.Err() {
		return nil, apperror.NewReceiptGenerationError("Problem encountered creating receipt", p.pdf.Error())
	}

	var buf bytes.Buffer
	if err := p.pdf.Output(&buf); err != nil {
		return nil, apperror.NewReceiptGenerationError("Problem encountered creating receipt", err)
	}

	sort.Strings(p.omitted)
	layout.OmittedImages = p.omitted

	c.logger.Debug(ctx, "receipt composed",
		zap.String("hash", hash),
		zap.Float64("header_size", layout.HeaderFontSize),
		zap.Int("body_lines", layout.BodyLines),
		zap.Strings("omitted", layout.OmittedImages))

	return &models.ReceiptDocument{
		PDF:       buf.Bytes(),
		Hash:      hash,
		VerifyURL: verifyURL,
		Layout:    layout,
	}, nil
}

// ValidateRequest rejects requests missing any field printed on, or hashed into, the receipt
func ValidateRequest(req *models.ReceiptRequest) error {
	if req == nil {
		return apperror.NewReceiptGenerationError("receipt request is required", nil)
	}

	var missing []string
	if headerText(req) == "" {
		missing = append(missing, "header")
	}
	if strings.TrimSpace(req.DatePaid) == "" {
		missing = append(missing, "date_paid")
	}
	if strings.TrimSpace(req.ReceivedFrom) == "" {
		missing = append(missing, "received_from")
	}
	if strings.TrimSpace(req.PaymentFor) == "" {
		missing = append(missing, "payment_for")
	}
	if req.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if req.Identity.CustomerEmail == "" {
		missing = append(missing, "customer_email")
	}
	if req.Identity.DatePaid == "" {
		missing = append(missing, "identity_date")
	}
	if req.Identity.TxnID <= 0 {
		missing = append(missing, "txn_id")
	}

	if len(missing) > 0 {
		return apperror.NewReceiptGenerationError(
			"missing required receipt fields: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

func headerText(req *models.ReceiptRequest) string {
	if h := strings.TrimSpace(req.Header); h != "" {
		return h
	}
	return strings.ToUpper(strings.TrimSpace(req.DepartmentName))
}

func watermarkText(req *models.ReceiptRequest) string {
	text := strings.TrimSpace(req.DepartmentName)
	if text == "" {
		text = strings.TrimSpace(req.Header)
	}
	return strings.ToUpper(text)
}

// page holds the state of one receipt being drawn
type page struct {
	ctx      context.Context
	pdf      *gofpdf.Fpdf
	tr       func(string) string
	utf8Font bool
	omitted  []string
	logger   *logging.Logger
}

func (c *Composer) newPage(ctx context.Context, datePaid, hash string) *page {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)

	// Fixed document dates keep the output reproducible
	stamp := time.Unix(0, 0).UTC()
	if t, err := timeutil.ParseDate(datePaid); err == nil {
		stamp = t
	}
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetTitle("Payment Receipt", false)
	pdf.SetSubject(hash, false)
	pdf.SetCreator("studentpay-backend", false)

	p := &page{
		ctx:    ctx,
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		logger: c.logger,
	}

	if c.cfg.FontPath != "" {
		pdf.AddUTF8Font(fontUTF8, "", c.cfg.FontPath)
		if pdf.Err() {
			c.logger.Warn(ctx, "currency font unavailable, using NGN",
				zap.String("path", c.cfg.FontPath), zap.Error(pdf.Error()))
			pdf.ClearError()
		} else {
			p.utf8Font = true
		}
	}

	pdf.AddPage()
	return p
}

func (p *page) measure(style string) MeasureFunc {
	return func(text string, size float64) float64 {
		p.pdf.SetFont(fontCore, style, size)
		return p.pdf.GetStringWidth(p.tr(text))
	}
}

func (p *page) text(x, y float64, s string) {
	p.pdf.Text(x, y, p.tr(s))
}

func (p *page) centeredText(cx, y float64, s string) {
	s = p.tr(s)
	p.pdf.Text(cx-p.pdf.GetStringWidth(s)/2, y, s)
}

func (p *page) rightText(right, y float64, s string) {
	s = p.tr(s)
	p.pdf.Text(right-p.pdf.GetStringWidth(s), y, s)
}

// placeImage draws a normalized PNG centered in the box, keeping its aspect ratio
func (p *page) placeImage(slot string, data []byte, x, y, w, h float64) bool {
	if len(data) == 0 {
		p.omitted = append(p.omitted, slot)
		return false
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	info := p.pdf.RegisterImageOptionsReader(slot, opts, bytes.NewReader(data))
	if p.pdf.Err() || info == nil {
		metrics.AssetLoadFailures.WithLabelValues(slot).Inc()
		p.logger.Warn(p.ctx, "receipt image rejected by pdf writer",
			zap.String("slot", slot), zap.Error(p.pdf.Error()))
		p.pdf.ClearError()
		p.omitted = append(p.omitted, slot)
		return false
	}

	iw, ih := fitRect(info.Width(), info.Height(), w, h)
	p.pdf.ImageOptions(slot, x+(w-iw)/2, y+(h-ih)/2, iw, ih, false, opts, 0, "")
	return true
}

func (p *page) drawLogos(images map[string][]byte) {
	p.placeImage(slotSchoolLogo, images[slotSchoolLogo], leftMargin, logoTop, logoSize, logoSize)
	p.placeImage(slotDepartmentLogo, images[slotDepartmentLogo], rightMargin-logoSize, logoTop, logoSize, logoSize)
}

// drawHeader wraps the header between the logo slots and returns the y below the RECEIPT tag
func (p *page) drawHeader(header string, layout *models.ReceiptLayout) float64 {
	gapLeft := leftMargin + logoSize + logoGap
	gapRight := rightMargin - logoSize - logoGap
	maxWidth := gapRight - gapLeft
	centerX := (gapLeft + gapRight) / 2

	measure := p.measure("B")
	size := ShrinkToFit(header, headerBaseSize, headerMinSize, maxWidth, measure)
	lines := WrapText(header, size, maxWidth, measure)
	lineHeight := size + 4

	p.pdf.SetTextColor(0, 0, 0)
	p.pdf.SetFont(fontCore, "B", size)
	y := headerBaseline
	for _, line := range lines {
		p.centeredText(centerX, y, line)
		y += lineHeight
	}

	layout.HeaderFontSize = size
	layout.HeaderLines = lines

	blockBottom := headerBaseline - size + float64(len(lines))*lineHeight

	const tagW, tagH = 70.0, 18.0
	tagTop := blockBottom + 4
	p.pdf.SetLineWidth(1)
	p.pdf.SetDrawColor(0, 0, 0)
	p.pdf.Rect(centerX-tagW/2, tagTop, tagW, tagH, "D")
	p.pdf.SetFont(fontCore, "B", 11)
	p.centeredText(centerX, tagTop+13, "RECEIPT")

	return tagTop + tagH
}

// drawBody writes the label/value rows. The body must end above the QR code.
func (p *page) drawBody(req *models.ReceiptRequest, headerBottom float64, layout *models.ReceiptLayout) error {
	words := strings.TrimSpace(req.AmountInWords)
	if words == "" {
		words = AmountInWords(req.Amount)
	}

	rows := []struct{ label, value string }{
		{"Date:", req.DatePaid},
		{"Received from:", req.ReceivedFrom},
		{"Being the Payment of:", req.PaymentFor},
		{"The sum of:", words},
	}

	y := headerBottom + 24
	if floor := logoTop + logoSize + 24; y < floor {
		y = floor
	}

	labelMeasure := p.measure("B")
	valueMeasure := p.measure("")
	lines := 0
	for _, row := range rows {
		label := row.label + " "
		labelWidth := labelMeasure(label, bodyFontSize)
		valueX := leftMargin + labelWidth + 6

		avail := pageWidth - leftMargin - bodyRightSlack
		if limit := rightMargin - valueX; limit < avail {
			avail = limit
		}

		p.pdf.SetFont(fontCore, "B", bodyFontSize)
		p.text(leftMargin, y, label)

		wrapped := WrapText(row.value, bodyFontSize, avail, valueMeasure)
		if len(wrapped) == 0 {
			wrapped = []string{""}
		}
		p.pdf.SetFont(fontCore, "", bodyFontSize)
		for _, line := range wrapped {
			p.text(valueX, y, line)
			y += bodySpacing
			lines++
		}
	}

	layout.BodyLines = lines

	if qrTop := amountBoxTop + amountBoxHeight/2 - qrSize/2; y-bodySpacing > qrTop {
		return apperror.NewReceiptGenerationError("receipt body does not fit on one page", nil)
	}
	return nil
}

func (p *page) drawSignatures(images map[string][]byte) {
	imageTop := signatureBottom - signatureHeight
	ruleY := signatureBottom + 6
	captionY := signatureBottom + 20

	p.placeImage(slotPresidentSignature, images[slotPresidentSignature], leftMargin, imageTop, signatureWidth, signatureHeight)
	p.placeImage(slotSecretarySignature, images[slotSecretarySignature], rightMargin-signatureRule, imageTop, signatureWidth, signatureHeight)

	p.pdf.SetLineWidth(0.75)
	p.pdf.Line(leftMargin, ruleY, leftMargin+signatureRule, ruleY)
	p.pdf.Line(rightMargin-signatureRule, ruleY, rightMargin, ruleY)

	p.pdf.SetFont(fontCore, "", 9)
	p.text(leftMargin, captionY, "President")
	p.rightText(rightMargin, captionY, "Financial Secretary")
}

// drawAmountBox draws the centered amount and returns the box's left edge
func (p *page) drawAmountBox(amount int64) float64 {
	x := (pageWidth - amountBoxWidth) / 2
	p.pdf.SetLineWidth(1)
	p.pdf.Rect(x, amountBoxTop, amountBoxWidth, amountBoxHeight, "D")

	baseline := amountBoxTop + amountBoxHeight/2 + 4
	if p.utf8Font {
		text := "₦ " + FormatAmount(amount)
		p.pdf.SetFont(fontUTF8, "", 12)
		p.pdf.Text(x+amountBoxWidth/2-p.pdf.GetStringWidth(text)/2, baseline, text)
	} else {
		p.pdf.SetFont(fontCore, "B", 12)
		p.centeredText(x+amountBoxWidth/2, baseline, "NGN "+FormatAmount(amount))
	}
	return x
}

// drawQR places the code beside the amount box, flipping to the left side if it would pass the margin
func (p *page) drawQR(qr []byte, boxX float64, layout *models.ReceiptLayout) bool {
	x := boxX + amountBoxWidth + qrGap
	if x+qrSize > rightMargin {
		x = boxX - qrSize - qrGap
		layout.QRFlipped = true
	}
	y := amountBoxTop + amountBoxHeight/2 - qrSize/2
	layout.QRSize = qrSize
	return p.placeImage(slotQR, qr, x, y, qrSize, qrSize)
}

func (p *page) drawHashLine(hash string) {
	p.pdf.SetFont(fontCore, "", 8)
	p.text(leftMargin, pageHeight-bottomMargin, "Verify: "+hash)
}

// drawWatermark is drawn last so it sits on top of everything at low opacity
func (p *page) drawWatermark(text string, layout *models.ReceiptLayout) {
	if text == "" {
		return
	}

	maxWidth := pageWidth * 0.9
	measure := p.measure("B")
	size := ShrinkToFit(text, watermarkBaseSize, watermarkMinSize, maxWidth, measure)
	lines := WrapText(text, size, maxWidth, measure)
	lineHeight := size + 6

	layout.WatermarkFontSize = size
	layout.WatermarkLines = lines

	cx, cy := pageWidth/2, pageHeight/2
	p.pdf.SetAlpha(watermarkAlpha, "Normal")
	p.pdf.SetTextColor(13, 13, 13)
	p.pdf.SetFont(fontCore, "B", size)
	p.pdf.TransformBegin()
	p.pdf.TransformRotate(watermarkAngle, cx, cy)
	y := cy - float64(len(lines)-1)*lineHeight/2 + size/3
	for _, line := range lines {
		p.centeredText(cx, y, line)
		y += lineHeight
	}
	p.pdf.TransformEnd()
	p.pdf.SetAlpha(1, "Normal")
	p.pdf.SetTextColor(0, 0, 0)
}
