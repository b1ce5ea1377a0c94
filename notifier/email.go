package notifier

import (
	"bytes"
	"context"
	"html/template"
	"net/smtp"
	"strconv"

	"cowin-slots/model"
)

const emailTemplate = `<html><body>
<h3>Vaccination slots are available</h3>
<table border="1" cellpadding="4">
<tr><th>Center</th><th>Pincode</th><th>Date</th><th>Vaccine</th><th>Dose</th><th>Available</th><th>Fee</th></tr>
{{range .}}<tr><td>{{.Slot.Name}}, {{.Slot.Address}}</td><td>{{.Slot.Pincode}}</td><td>{{.Slot.Date}}</td><td>{{.Slot.Vaccine}}</td><td>{{.Dose}}</td><td>{{.Capacity}}</td><td>{{.Slot.FeeClass}}</td></tr>
{{end}}</table>
</body></html>`

var emailTmpl = template.Must(template.New("email").Parse(emailTemplate))

// Email sends an HTML table of matches over SMTP with plain auth.
type Email struct {
	host      string
	port      int
	from      string
	password  string
	receivers []string
	send      func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (e *Email) Notify(_ context.Context, matches []model.Match) {
	if len(matches) == 0 {
		return
	}
	msg, err := buildEmail(matches)
	if err != nil {
		logFailure("email", err)
		return
	}

	send := e.send
	if send == nil {
		send = smtp.SendMail
	}
	auth := smtp.PlainAuth("", e.from, e.password, e.host)
	if err := send(e.host+":"+strconv.Itoa(e.port), auth, e.from, e.receivers, msg); err != nil {
		logFailure("email", err)
	}
}

func buildEmail(matches []model.Match) ([]byte, error) {
	var body bytes.Buffer
	body.WriteString("Subject: ATTENTION!! Covid-19 Vaccine Availability Alert\n")
	body.WriteString("MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n")
	if err := emailTmpl.Execute(&body, matches); err != nil {
		return nil, err
	}
	return body.Bytes(), nil
}
