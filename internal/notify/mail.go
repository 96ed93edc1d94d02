package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"intraday_trader/internal/modules/config"
	"intraday_trader/pkg/logger"
)

const (
	subjectPrefix = "Algo Trading"
	subjectTime   = "02 Jan 2006, 03:04:05 PM"

	// sendTimeout bounds one whole SMTP exchange, dial included.
	sendTimeout = 30 * time.Second
)

var tableTmpl = template.Must(template.New("table").Parse(`<html>
<body>
<h3>{{.Title}}</h3>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse:collapse">
{{- range .Rows}}
<tr><th align="left">{{.Key}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))

type row struct {
	Key   string
	Value string
}

// Mail sends each event as an HTML two-column table over implicit TLS.
type Mail struct {
	cfg     config.Mail
	timeout time.Duration
	dial    func(addr string) (net.Conn, error)
	send    func(from string, to []string, msg []byte) error
}

func NewMail(cfg config.Mail) *Mail {
	m := &Mail{cfg: cfg, timeout: sendTimeout}
	m.dial = func(addr string) (net.Conn, error) {
		return tls.DialWithDialer(&net.Dialer{Timeout: m.timeout}, "tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	}
	m.send = m.sendTLS
	return m
}

func (m *Mail) Notify(ctx context.Context, e Event) {
	if err := m.Send(ctx, e); err != nil {
		logger.Error("[NOTIFY] mail %q: %v", e.Subject, err)
	}
}

func (m *Mail) Send(_ context.Context, e Event) error {
	if !m.cfg.Enabled || len(m.cfg.Recipients) == 0 {
		return nil
	}
	msg, err := m.compose(e)
	if err != nil {
		return err
	}
	return m.send(m.cfg.Address, m.cfg.Recipients, msg)
}

// Subject formats "Algo Trading - <subject> - <time>".
func Subject(subject string, at time.Time) string {
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("%s - %s - %s", subjectPrefix, subject, at.Format(subjectTime))
}

func (m *Mail) compose(e Event) ([]byte, error) {
	rows := make([]row, 0, len(e.Details))
	for _, f := range e.Details {
		rows = append(rows, row{Key: f.Key, Value: FormatValue(f.Value)})
	}

	var body bytes.Buffer
	if err := tableTmpl.Execute(&body, struct {
		Title string
		Rows  []row
	}{e.Subject, rows}); err != nil {
		return nil, fmt.Errorf("render mail: %w", err)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.Address)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.cfg.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", Subject(e.Subject, e.At)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.Write(body.Bytes())
	return b.Bytes(), nil
}

func (m *Mail) sendTLS(from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := m.dial(addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	// a stalled server must not hold the decision that is notifying
	if err := conn.SetDeadline(time.Now().Add(m.timeout)); err != nil {
		_ = conn.Close()
		return fmt.Errorf("set deadline: %w", err)
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if err := c.Auth(smtp.PlainAuth("", m.cfg.Address, m.cfg.Password, m.cfg.Host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
