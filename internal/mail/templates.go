package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

const appName = "StudentPay"

// ReceiptData fills the payment receipt mail
type ReceiptData struct {
	To             string
	ReceivedFrom   string
	DepartmentName string
	PaymentFor     string
	Amount         string
	DatePaid       string
	Reference      string
	ReceiptURL     string
	VerifyURL      string
	PDF            []byte
	Filename       string
}

type DepartmentData struct {
	To             string
	DepartmentName string
	Reason         string
	LoginURL       string
}

var templates = template.Must(template.New("mail").Parse(layoutTemplate + receiptTemplate + welcomeTemplate + approvedTemplate + rejectedTemplate))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, struct {
		AppName string
		Data    any
	}{appName, data}); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return buf.String(), nil
}

// ReceiptMessage builds the receipt mail with the PDF attached
func ReceiptMessage(d ReceiptData) (*Message, error) {
	html, err := render("receipt", d)
	if err != nil {
		return nil, err
	}
	filename := d.Filename
	if filename == "" {
		filename = "receipt.pdf"
	}
	return &Message{
		To:      d.To,
		Subject: fmt.Sprintf("Payment receipt - %s", d.PaymentFor),
		HTML:    html,
		Attachments: []Attachment{{
			Filename:    filename,
			ContentType: "application/pdf",
			Data:        d.PDF,
		}},
	}, nil
}

func WelcomeMessage(d DepartmentData) (*Message, error) {
	html, err := render("welcome", d)
	if err != nil {
		return nil, err
	}
	return &Message{To: d.To, Subject: "Welcome to " + appName, HTML: html}, nil
}

func ApprovedMessage(d DepartmentData) (*Message, error) {
	html, err := render("approved", d)
	if err != nil {
		return nil, err
	}
	return &Message{To: d.To, Subject: "Your department has been verified", HTML: html}, nil
}

func RejectedMessage(d DepartmentData) (*Message, error) {
	html, err := render("rejected", d)
	if err != nil {
		return nil, err
	}
	return &Message{To: d.To, Subject: "Your department verification was declined", HTML: html}, nil
}

const layoutTemplate = `
{{define "header"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.AppName}}</title></head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f4f7fa;">
<table role="presentation" style="max-width: 600px; margin: 40px auto; background-color: #ffffff; border-radius: 12px;">
<tr><td style="background: #1f3b73; padding: 30px; text-align: center;">
<h1 style="color: #ffffff; margin: 0; font-size: 24px;">{{.AppName}}</h1>
</td></tr>
<tr><td style="padding: 30px; color: #4a5568; font-size: 16px; line-height: 1.6;">{{end}}
{{define "footer"}}</td></tr>
<tr><td style="background-color: #f8fafc; padding: 20px; text-align: center; color: #a0aec0; font-size: 13px;">
This email was sent by {{.AppName}}
</td></tr>
</table>
</body>
</html>{{end}}`

const receiptTemplate = `
{{define "receipt"}}{{template "header" .}}
<p>Hello {{.Data.ReceivedFrom}},</p>
<p>We received your payment of <strong>NGN {{.Data.Amount}}</strong> to <strong>{{.Data.DepartmentName}}</strong> for <strong>{{.Data.PaymentFor}}</strong> on {{.Data.DatePaid}}.</p>
<p>Your receipt is attached. You can also <a href="{{.Data.ReceiptURL}}">download it here</a>.</p>
<p style="font-size: 14px; color: #718096;">Anyone can confirm this receipt is genuine at <a href="{{.Data.VerifyURL}}">{{.Data.VerifyURL}}</a> or by scanning the QR code on it.</p>
<p style="font-size: 13px; color: #a0aec0;">Reference: {{.Data.Reference}}</p>
{{template "footer" .}}{{end}}`

const welcomeTemplate = `
{{define "welcome"}}{{template "header" .}}
<p>Hello {{.Data.DepartmentName}},</p>
<p>Your account has been created. A member of staff will review your department before you can start collecting dues.</p>
<p>Meanwhile, add your bank details, logo and signatures from your dashboard.</p>
{{if .Data.LoginURL}}<p><a href="{{.Data.LoginURL}}">Sign in</a></p>{{end}}
{{template "footer" .}}{{end}}`

const approvedTemplate = `
{{define "approved"}}{{template "header" .}}
<p>Hello {{.Data.DepartmentName}},</p>
<p>Your department has been verified. Students can now pay dues to you and receive receipts.</p>
{{if .Data.LoginURL}}<p><a href="{{.Data.LoginURL}}">Go to your dashboard</a></p>{{end}}
{{template "footer" .}}{{end}}`

const rejectedTemplate = `
{{define "rejected"}}{{template "header" .}}
<p>Hello {{.Data.DepartmentName}},</p>
<p>We could not verify your department at this time.</p>
{{if .Data.Reason}}<p><strong>Reason:</strong> {{.Data.Reason}}</p>{{end}}
<p>Update your details and contact support to request another review.</p>
{{template "footer" .}}{{end}}`
