package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const layout = `<html><body style="font-family: sans-serif;">
<p>Dear {{.Name}},</p>
{{template "content" .}}
<p>Regards,<br>{{.AppName}}</p>
</body></html>`

var templates = map[string]string{
	"registration": `{{define "content"}}<p>Thank you for registering with {{.AppName}}.</p>
<p>Your registration is pending approval by the administrator. You will receive your login credentials by email once it has been approved.</p>{{end}}`,

	"approved": `{{define "content"}}<p>Your account has been approved.</p>
<p>Login ID: <strong>{{.LoginID}}</strong><br>Password: <strong>{{.Password}}</strong></p>
<p>Please change your password after your first login{{if .BaseURL}} at <a href="{{.BaseURL}}">{{.BaseURL}}</a>{{end}}.</p>{{end}}`,

	"reset": `{{define "content"}}<p>A password reset was requested for your account.</p>
<p>Login ID: <strong>{{.LoginID}}</strong><br>New password: <strong>{{.Password}}</strong></p>
<p>If you did not ask for this, contact the library.</p>{{end}}`,

	"overdue": `{{define "content"}}<p>The book <strong>{{.BookTitle}}</strong> was due on {{.DueDate}}.</p>
<p>Please return it or request a renewal as soon as possible.</p>{{end}}`,
}

var parsed = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(templates))
	for name, content := range templates {
		t := template.Must(template.New(name).Parse(layout))
		out[name] = template.Must(t.Parse(content))
	}
	return out
}()

// Sender describes who the mails come from.
type Sender struct {
	AppName string
	BaseURL string
}

type templateData struct {
	Sender
	Name      string
	LoginID   string
	Password  string
	BookTitle string
	DueDate   string
}

func render(name string, data templateData) (string, error) {
	t, ok := parsed[name]
	if !ok {
		return "", fmt.Errorf("unknown mail template %q", name)
	}
	if data.AppName == "" {
		data.AppName = "Library Manager"
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s mail: %w", name, err)
	}
	return buf.String(), nil
}

// RegistrationReceived confirms a registration that awaits approval.
func (s Sender) RegistrationReceived(to, name string) (Message, error) {
	body, err := render("registration", templateData{Sender: s, Name: name})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Registration Successful - Pending Approval", Body: body}, nil
}

// AccountApproved delivers the credentials generated on approval.
func (s Sender) AccountApproved(to, name, loginID, password string) (Message, error) {
	body, err := render("approved", templateData{Sender: s, Name: name, LoginID: loginID, Password: password})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Your Account Has Been Approved", Body: body}, nil
}

// PasswordReset delivers a freshly generated password.
func (s Sender) PasswordReset(to, name, loginID, password string) (Message, error) {
	body, err := render("reset", templateData{Sender: s, Name: name, LoginID: loginID, Password: password})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Your Password Has Been Reset", Body: body}, nil
}

// OverdueReminder nags a borrower about a late book.
func (s Sender) OverdueReminder(to, name, bookTitle string, due time.Time) (Message, error) {
	body, err := render("overdue", templateData{Sender: s, Name: name, BookTitle: bookTitle, DueDate: due.Format("02 Jan 2006")})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Overdue Book Reminder: " + bookTitle, Body: body}, nil
}
