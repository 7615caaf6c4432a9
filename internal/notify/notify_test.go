package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"practice/internal/config"
	"practice/internal/model"

	"go.uber.org/zap"
)

type recordingMailer struct {
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func TestBookingNotifier(t *testing.T) {
	m := &recordingMailer{}
	n := NewBookingNotifier(m, "inbox@practice.local")

	a := model.Appointment{
		Name:             "Ada",
		Email:            "ada@example.com",
		Phone:            "555-0100",
		Date:             "2026-10-20",
		Time:             "14:30",
		ConsultationType: model.ConsultationSports,
		Message:          "Knee pain",
	}
	a.ID = "appt-1"

	if err := n.NotifyBooking(context.Background(), a); err != nil {
		t.Fatalf("NotifyBooking() error = %v", err)
	}
	if len(m.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(m.sent))
	}
	msg := m.sent[0]
	if msg.To[0] != "inbox@practice.local" {
		t.Errorf("To = %v", msg.To)
	}
	for _, want := range []string{"Ada", "2026-10-20 at 14:30", "sports", "Booked as guest", "Knee pain"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestBookingNotifierWrapsFailure(t *testing.T) {
	sendErr := errors.New("smtp down")
	n := NewBookingNotifier(&recordingMailer{err: sendErr}, "inbox@practice.local")
	if err := n.NotifyBooking(context.Background(), model.Appointment{}); !errors.Is(err, sendErr) {
		t.Errorf("NotifyBooking() error = %v, want wrapped send error", err)
	}
}

func TestResendMailer(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if got.Subject == "fail" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := &ResendMailer{APIKey: "re_test", From: "Practice <no-reply@practice.local>", Endpoint: srv.URL, Client: srv.Client()}

	if err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "hello", Body: "hi"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if auth != "Bearer re_test" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Text != "hi" || got.To[0] != "a@example.com" {
		t.Errorf("request = %+v", got)
	}

	if err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "fail"}); err == nil {
		t.Error("Send() expected error on 422")
	}
}

func TestNewMailerSelection(t *testing.T) {
	log := zap.NewNop()
	if _, ok := NewMailer(config.EmailConfig{SMTPEnabled: true, SMTPHost: "smtp.local"}, log).(*SMTPMailer); !ok {
		t.Error("SMTP enabled did not select SMTPMailer")
	}
	if _, ok := NewMailer(config.EmailConfig{ResendAPIKey: "k"}, log).(*ResendMailer); !ok {
		t.Error("API key did not select ResendMailer")
	}
	if _, ok := NewMailer(config.EmailConfig{}, log).(*LogMailer); !ok {
		t.Error("empty config did not select LogMailer")
	}
}

func TestHeaderHelpers(t *testing.T) {
	if got := headerSafe("a\r\nBcc: x"); strings.ContainsAny(got, "\r\n") {
		t.Errorf("headerSafe() = %q", got)
	}
	if got := envelopeAddress("Practice <no-reply@practice.local>"); got != "no-reply@practice.local" {
		t.Errorf("envelopeAddress() = %q", got)
	}
	if got := envelopeAddress(" plain@practice.local "); got != "plain@practice.local" {
		t.Errorf("envelopeAddress() = %q", got)
	}
}

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.events = append(p.events, e)
	return p.err
}

func TestFanout(t *testing.T) {
	ok := &recordingPublisher{}
	bad := &recordingPublisher{err: errors.New("broker down")}
	f := Fanout{bad, nil, ok, Discard{}}

	err := f.Publish(context.Background(), Event{Type: EventAppointmentCreated, EntityID: "a-1"})
	if !errors.Is(err, bad.err) {
		t.Errorf("Publish() error = %v, want broker error", err)
	}
	if len(ok.events) != 1 {
		t.Error("failing publisher stopped delivery to the rest")
	}
}

// silentListener accepts connections and never writes to them.
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestSMTPMailerStopsAtDeadline(t *testing.T) {
	host, port, _ := net.SplitHostPort(silentListener(t))
	m := &SMTPMailer{Host: host, Port: port, From: "Practice <noreply@practice.local>"}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := m.Send(ctx, Message{To: []string{"inbox@practice.local"}, Subject: "New booking", Body: "hi"})
	if err == nil {
		t.Fatal("Send() error = nil against a relay that never greets")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Send() returned after %v, want about 200ms", elapsed)
	}
}

func TestSMTPMailerStopsOnCancel(t *testing.T) {
	host, port, _ := net.SplitHostPort(silentListener(t))
	m := &SMTPMailer{Host: host, Port: port, From: "noreply@practice.local"}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- m.Send(ctx, Message{To: []string{"inbox@practice.local"}}) }()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Send() error = nil after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send() still blocked after cancel")
	}
}

// fakeRelay speaks just enough SMTP to accept one message.
func fakeRelay(t *testing.T) (addr string, received <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		tp := textproto.NewConn(c)
		_ = tp.PrintfLine("220 relay.test ESMTP")
		var data strings.Builder
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			verb, _, _ := strings.Cut(line, " ")
			switch strings.ToUpper(verb) {
			case "EHLO":
				_ = tp.PrintfLine("250-relay.test")
				_ = tp.PrintfLine("250 8BITMIME")
			case "MAIL", "RCPT":
				data.WriteString(line + "\n")
				_ = tp.PrintfLine("250 OK")
			case "DATA":
				_ = tp.PrintfLine("354 go ahead")
				body, err := tp.ReadDotLines()
				if err != nil {
					return
				}
				data.WriteString(strings.Join(body, "\n"))
				_ = tp.PrintfLine("250 queued")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				out <- data.String()
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()
	return ln.Addr().String(), out
}

func TestSMTPMailerDelivers(t *testing.T) {
	addr, received := fakeRelay(t)
	host, port, _ := net.SplitHostPort(addr)
	m := &SMTPMailer{Host: host, Port: port, From: "Practice <noreply@practice.local>"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.Send(ctx, Message{To: []string{"inbox@practice.local"}, Subject: "New booking", Body: "Ada booked"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case got := <-received:
		for _, want := range []string{"MAIL FROM:<noreply@practice.local>", "RCPT TO:<inbox@practice.local>", "Subject: New booking", "Ada booked"} {
			if !strings.Contains(got, want) {
				t.Errorf("relay transcript missing %q:\n%s", want, got)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay never saw QUIT")
	}
}

func TestAMQPPublisherStopsAtDeadline(t *testing.T) {
	p := NewAMQPPublisher("amqp://guest:guest@"+silentListener(t)+"/", zap.NewNop())
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := p.Publish(ctx, Event{Type: EventAppointmentCreated, EntityID: "a-1"}); err == nil {
		t.Fatal("Publish() error = nil against a broker that never answers")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Publish() returned after %v, want about 200ms", elapsed)
	}
}
