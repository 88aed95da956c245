package domain

// Mail is an outbound message handed to the mailer.
type Mail struct {
	From        string
	To          string
	ReplyTo     string
	Subject     string
	Body        string
	Attachments []Attachment
}
