package email

import (
	"fmt"
)

// ReceiptEmailData contains the data needed for payment receipt emails.
type ReceiptEmailData struct {
	StudentName string
	Email       string
	CourseTitle string
	OrderID     string
	GrossAmount string
	Discount    string
	PaidAmount  string
	PaidAt      string
	AppName     string
}

// BuildPaymentReceiptEmail creates a receipt email message sent after a
// payment completes.
func BuildPaymentReceiptEmail(data ReceiptEmailData) Message {
	appName := data.AppName
	if appName == "" {
		appName = "Dhwani"
	}

	name := data.StudentName
	if name == "" {
		name = "there"
	}

	subject := fmt.Sprintf("Your %s receipt for %s", appName, data.CourseTitle)

	discountLine := ""
	discountRow := ""
	if data.Discount != "" && data.Discount != "0.00" {
		discountLine = fmt.Sprintf("Discount: -%s\n", data.Discount)
		discountRow = fmt.Sprintf(`<tr><td style="padding: 4px 12px; color: #16a34a;">Discount</td><td style="padding: 4px 12px; text-align: right; color: #16a34a;">-%s</td></tr>`, data.Discount)
	}

	textBody := fmt.Sprintf(`Hi %s,

Thanks for your purchase on %s!

Course: %s
Order: %s
Amount: %s
%sPaid: %s
Date: %s

You now have full access to the course audio.

Thanks,
The %s Team`,
		name, appName, data.CourseTitle, data.OrderID, data.GrossAmount, discountLine, data.PaidAmount, data.PaidAt, appName)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">Hi %s,</h2>
    <p>Thanks for your purchase on %s!</p>
    <table style="width: 100%%; background-color: #f3f4f6; border-radius: 6px; margin: 20px 0;">
        <tr><td style="padding: 4px 12px;">Course</td><td style="padding: 4px 12px; text-align: right;"><strong>%s</strong></td></tr>
        <tr><td style="padding: 4px 12px;">Order</td><td style="padding: 4px 12px; text-align: right; font-family: monospace;">%s</td></tr>
        <tr><td style="padding: 4px 12px;">Amount</td><td style="padding: 4px 12px; text-align: right;">%s</td></tr>
        %s
        <tr><td style="padding: 4px 12px;">Paid</td><td style="padding: 4px 12px; text-align: right;"><strong>%s</strong></td></tr>
        <tr><td style="padding: 4px 12px;">Date</td><td style="padding: 4px 12px; text-align: right;">%s</td></tr>
    </table>
    <p>You now have full access to the course audio.</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">Thanks,<br>The %s Team</p>
</body>
</html>`,
		name, appName, data.CourseTitle, data.OrderID, data.GrossAmount, discountRow, data.PaidAmount, data.PaidAt, appName)

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	}
}

// PayoutEmailData contains the data needed for payout notification emails.
type PayoutEmailData struct {
	TeacherName      string
	Email            string
	Amount           string
	RemainingBalance string
	ProcessedAt      string
	Notes            string
	AppName          string
}

// BuildPayoutProcessedEmail creates the notification sent to a teacher when
// an admin processes a payout against their commission balance.
func BuildPayoutProcessedEmail(data PayoutEmailData) Message {
	appName := data.AppName
	if appName == "" {
		appName = "Dhwani"
	}

	name := data.TeacherName
	if name == "" {
		name = "there"
	}

	subject := fmt.Sprintf("Your %s payout of %s has been processed", appName, data.Amount)

	notesLine := ""
	if data.Notes != "" {
		notesLine = fmt.Sprintf("\nNotes: %s\n", data.Notes)
	}

	textBody := fmt.Sprintf(`Hi %s,

A payout has been processed against your %s earnings.

Amount: %s
Remaining balance: %s
Processed: %s
%s
The transfer should reach your registered bank account within 2-3 business days.

Thanks,
The %s Team`,
		name, appName, data.Amount, data.RemainingBalance, data.ProcessedAt, notesLine, appName)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">Hi %s,</h2>
    <p>A payout has been processed against your %s earnings.</p>
    <p style="text-align: center; margin: 30px 0; background-color: #f3f4f6; padding: 20px; border-radius: 6px;">
        <span style="font-size: 12px; color: #6b7280;">Payout amount</span><br>
        <span style="font-size: 32px; font-weight: bold; color: #16a34a;">%s</span>
    </p>
    <p>Remaining balance: <strong>%s</strong></p>
    <p>Processed: %s</p>
    <p style="color: #6b7280; font-size: 14px;">The transfer should reach your registered bank account within 2-3 business days.</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">Thanks,<br>The %s Team</p>
</body>
</html>`,
		name, appName, data.Amount, data.RemainingBalance, data.ProcessedAt, appName)

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	}
}
