package notify

import (
	"context"
	"fmt"
	"strings"

	"practice/internal/model"
)

// BookingNotifier emails the practice inbox whenever an appointment is booked.
type BookingNotifier struct {
	mailer Mailer
	to     string
}

func NewBookingNotifier(mailer Mailer, to string) *BookingNotifier {
	return &BookingNotifier{mailer: mailer, to: to}
}

// NotifyBooking sends a plain-text summary of a.
func (n *BookingNotifier) NotifyBooking(ctx context.Context, a model.Appointment) error {
	if n == nil || n.mailer == nil || n.to == "" {
		return nil
	}
	msg := Message{
		To:      []string{n.to},
		Subject: fmt.Sprintf("New appointment request: %s on %s %s", a.Name, a.Date, a.Time),
		Body:    bookingBody(a),
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify booking %s: %w", a.ID, err)
	}
	return nil
}

func bookingBody(a model.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Appointment %s\n\n", a.ID)
	fmt.Fprintf(&b, "Name: %s\n", a.Name)
	fmt.Fprintf(&b, "Email: %s\n", a.Email)
	fmt.Fprintf(&b, "Phone: %s\n", a.Phone)
	fmt.Fprintf(&b, "Date: %s at %s\n", a.Date, a.Time)
	fmt.Fprintf(&b, "Consultation: %s\n", a.ConsultationType)
	if a.Service != "" {
		fmt.Fprintf(&b, "Service: %s\n", a.Service)
	}
	if a.UserID == nil {
		b.WriteString("Booked as guest\n")
	}
	if a.Message != "" {
		fmt.Fprintf(&b, "\nMessage:\n%s\n", a.Message)
	}
	return b.String()
}
