package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Subjects of the lifecycle e-mails.
const (
	SubjectApprovalRequest = "Account Approval"
	SubjectApproved        = "Registration Approved"
	SubjectWelcome         = "Registration Complete"
	SubjectPasswordReset   = "Password Reset Request"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "approval_request"}}<h2>Dear Admin,</h2>
<p>A new user with email address {{.Email}} has registered on the platform and needs approval.</p>
<p>Please click the link below to approve the user:</p>
<a href="{{.Link}}">{{.Link}}</a>
{{end}}
{{define "approved"}}<h2>Hello {{.Name}}</h2>
<p>Your registration to our app has been approved!</p>
<p>Please click the following link to confirm your registration:</p>
<a href="{{.Link}}">{{.Link}}</a>
<p>Regards...</p>
{{end}}
{{define "welcome"}}<h2>Hello {{.Name}}</h2>
<p>Thank you for registering on our app. Your account is now fully approved and you can start using our app.</p>
<p>Regards...</p>
{{end}}
{{define "password_reset"}}<h2>Hello {{.Name}}</h2>
<p>Please use the url below to reset your password</p>
<p>This reset link is valid for only {{.Validity}}.</p>
<a href="{{.Link}}" clicktracking="off">{{.Link}}</a>
<p>Regards...</p>
{{end}}
`))

// Recipient is the part of an account a message is addressed to.
type Recipient struct {
	Name  string
	Email string
}

// Composer renders lifecycle messages with links into the front end at
// baseURL.
type Composer struct {
	baseURL    string
	adminEmail string
}

func NewComposer(baseURL, adminEmail string) *Composer {
	return &Composer{baseURL: strings.TrimRight(baseURL, "/"), adminEmail: adminEmail}
}

type templateData struct {
	Name     string
	Email    string
	Link     string
	Validity string
}

func (c *Composer) render(name string, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (c *Composer) link(path, token string) string {
	return c.baseURL + path + token
}

// ApprovalRequest asks the administrator to approve the new account.
func (c *Composer) ApprovalRequest(r Recipient, approveToken string) (Message, error) {
	html, err := c.render("approval_request", templateData{
		Name:  r.Name,
		Email: r.Email,
		Link:  c.link("/approve-user/", approveToken),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: c.adminEmail, Subject: SubjectApprovalRequest, HTML: html}, nil
}

// Approved tells the user the account was approved and carries the
// confirmation link.
func (c *Composer) Approved(r Recipient, confirmToken string) (Message, error) {
	html, err := c.render("approved", templateData{
		Name: r.Name,
		Link: c.link("/complete-registration/", confirmToken),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: r.Email, Subject: SubjectApproved, HTML: html}, nil
}

func (c *Composer) Welcome(r Recipient) (Message, error) {
	html, err := c.render("welcome", templateData{Name: r.Name})
	if err != nil {
		return Message{}, err
	}
	return Message{To: r.Email, Subject: SubjectWelcome, HTML: html}, nil
}

// PasswordReset carries the raw reset secret, valid for validity.
func (c *Composer) PasswordReset(r Recipient, secret string, validity time.Duration) (Message, error) {
	html, err := c.render("password_reset", templateData{
		Name:     r.Name,
		Link:     c.link("/resetpassword/", secret),
		Validity: humanize(validity),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: r.Email, Subject: SubjectPasswordReset, HTML: html}, nil
}

func humanize(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
