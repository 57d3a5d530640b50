package email

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Notifier delivers marketplace notifications. In dev mode messages are
// logged instead of sent.
type Notifier struct {
	cfg     SMTPConfig
	devMode bool
	baseURL string
	send    func(cfg SMTPConfig, to []string, subject, body string) error
}

// NewNotifier creates a notifier. baseURL is used for links back to the site.
func NewNotifier(cfg SMTPConfig, devMode bool, baseURL string) *Notifier {
	return &Notifier{cfg: cfg, devMode: devMode, baseURL: strings.TrimSuffix(baseURL, "/"), send: Send}
}

// Send delivers one message.
func (n *Notifier) Send(to []string, subject, body string) error {
	if n.devMode {
		slog.Info("email", "to", strings.Join(to, ", "), "subject", subject, "body", body)
		return nil
	}
	return n.send(n.cfg, to, subject, body)
}

// Listing is the part of a listing shown in notifications.
type Listing struct {
	ID      string
	Title   string
	Address string
	Price   int64
}

// InquiryNotice describes a new inquiry for the listing owner.
type InquiryNotice struct {
	Listing     Listing
	SenderName  string
	SenderEmail string
	SenderPhone string
	Subject     string
	Message     string
}

// ViewingNotice describes a viewing request for the listing owner.
type ViewingNotice struct {
	Listing     Listing
	ScheduledAt time.Time
	Notes       string
}

// InquiryReceived tells the owner about a new inquiry.
func (n *Notifier) InquiryReceived(to string, notice InquiryNotice) error {
	subject := "New inquiry: " + notice.Listing.Title
	if notice.Subject != "" {
		subject = fmt.Sprintf("New inquiry: %s (%s)", notice.Listing.Title, notice.Subject)
	}
	return n.Send([]string{to}, subject, FormatInquiry(notice, n.baseURL))
}

// ViewingRequested tells the owner about a new viewing request.
func (n *Notifier) ViewingRequested(to string, notice ViewingNotice) error {
	return n.Send([]string{to}, "Viewing requested: "+notice.Listing.Title, FormatViewing(notice, n.baseURL))
}

// FormatInquiry builds the plain-text body for an inquiry notice.
func FormatInquiry(notice InquiryNotice, baseURL string) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Hi,\n\nYou have a new inquiry about your listing:\n\n")
	writeListing(&buf, notice.Listing, baseURL)

	from := notice.SenderName
	if from == "" {
		from = "A buyer"
	}
	fmt.Fprintf(&buf, "\nFrom: %s\n", from)
	if notice.SenderEmail != "" {
		fmt.Fprintf(&buf, "Email: %s\n", notice.SenderEmail)
	}
	if notice.SenderPhone != "" {
		fmt.Fprintf(&buf, "Phone: %s\n", notice.SenderPhone)
	}
	if notice.Subject != "" {
		fmt.Fprintf(&buf, "Subject: %s\n", notice.Subject)
	}
	fmt.Fprintf(&buf, "\n%s\n\n", notice.Message)
	fmt.Fprintf(&buf, "Manage your inquiries at %s/inquiries\n", baseURL)

	return buf.String()
}

// FormatViewing builds the plain-text body for a viewing request.
func FormatViewing(notice ViewingNotice, baseURL string) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Hi,\n\nA viewing was requested for your listing:\n\n")
	writeListing(&buf, notice.Listing, baseURL)
	fmt.Fprintf(&buf, "\nWhen: %s\n", notice.ScheduledAt.UTC().Format("Mon Jan 2, 2006 15:04 MST"))
	if notice.Notes != "" {
		fmt.Fprintf(&buf, "Notes: %s\n", notice.Notes)
	}
	fmt.Fprintf(&buf, "\nAccept or reject it at %s/viewings\n", baseURL)

	return buf.String()
}

func writeListing(buf *bytes.Buffer, l Listing, baseURL string) {
	fmt.Fprintf(buf, "   %s\n", l.Title)
	var details []string
	if l.Address != "" {
		details = append(details, l.Address)
	}
	if l.Price > 0 {
		details = append(details, "$"+FormatWithCommas(l.Price))
	}
	if len(details) > 0 {
		fmt.Fprintf(buf, "   %s\n", strings.Join(details, " | "))
	}
	if l.ID != "" {
		fmt.Fprintf(buf, "   %s/properties/%s\n", baseURL, l.ID)
	}
}

// FormatWithCommas renders n with thousands separators.
func FormatWithCommas(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		return "-" + out
	}
	return out
}
