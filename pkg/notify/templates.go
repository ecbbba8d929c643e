package notify

import (
	"bytes"
	"html/template"

	"courier-assistant/internal/models"
)

// TemplateManager holds the parsed email templates.
type TemplateManager struct {
	ActivationTmpl   *template.Template
	ResetPassTmpl    *template.Template
	CallReminderTmpl *template.Template
}

// NewTemplateManager parses all email templates at startup.
func NewTemplateManager() (*TemplateManager, error) {
	activationTmpl, err := template.New("activation").Parse(accountActivTemplate)
	if err != nil {
		return nil, err
	}

	resetPassTmpl, err := template.New("resetPassword").Parse(passwordResetTemplate)
	if err != nil {
		return nil, err
	}

	callTmpl, err := template.New("callReminder").Parse(callReminderTemplate)
	if err != nil {
		return nil, err
	}

	return &TemplateManager{
		ActivationTmpl:   activationTmpl,
		ResetPassTmpl:    resetPassTmpl,
		CallReminderTmpl: callTmpl,
	}, nil
}

// TemplateData holds the dynamic data for an account email template.
type TemplateData struct {
	Name string
	Link string
}

// GenerateActivateAccountEmailHTML executes the activation template.
func (tm *TemplateManager) GenerateActivateAccountEmailHTML(data TemplateData) (string, error) {
	var body bytes.Buffer
	if err := tm.ActivationTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// GenerateResetPasswordEmailHTML executes the password reset template.
func (tm *TemplateManager) GenerateResetPasswordEmailHTML(data TemplateData) (string, error) {
	var body bytes.Buffer
	if err := tm.ResetPassTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

type callReminderData struct {
	Name         string
	OrderNumber  string
	CustomerName string
	Phone        string
	Arrival      string
	Retry        bool
}

// GenerateCallReminderHTML renders the call reminder email body.
func (tm *TemplateManager) GenerateCallReminderHTML(n models.CallNotification, courierName string) (string, error) {
	data := callReminderData{
		Name:         courierName,
		OrderNumber:  n.OrderNumber,
		CustomerName: n.CustomerName,
		Phone:        n.Phone,
		Retry:        n.IsRetry,
	}
	if n.ArrivalTime != nil {
		data.Arrival = n.ArrivalTime.Format("15:04")
	}
	var body bytes.Buffer
	if err := tm.CallReminderTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// --- HTML Template Definitions ---

const accountActivTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Activate Your Account</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Welcome to Courier Assistant, {{.Name}}!</h2>
	<p>Thank you for signing up. Please click the link below to activate your account:</p>
	<p><a href="{{.Link}}">Activate Account</a></p>
	<p>This link will expire in 30 minutes.</p>
	<p>If you did not sign up for this account, please ignore this email.</p>
</body>
</html>
`

const passwordResetTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Reset Your Password</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Password Reset Request</h2>
	<p>Hello {{.Name}},</p>
	<p>We received a request to reset your password. Please click the link below to set a new password:</p>
	<p><a href="{{.Link}}">Reset Password</a></p>
	<p>This link will expire in 15 minutes.</p>
	<p>If you did not request a password reset, please ignore this email.</p>
</body>
</html>
`

const callReminderTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Time to Call</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Time to call{{if .Retry}} (retry){{end}}, {{.Name}}</h2>
	<p>Order <b>{{.OrderNumber}}</b></p>
	<p>{{if .CustomerName}}{{.CustomerName}} &mdash; {{end}}{{.Phone}}</p>
	{{if .Arrival}}<p>Estimated arrival: {{.Arrival}}</p>{{end}}
</body>
</html>
`
