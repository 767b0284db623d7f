package leave

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

var approvalMail = template.Must(template.New("approval").Parse(`<html>
<body>
<p>This is an automated leave application mail for {{.Name}}.</p>
<table border="1" style="border-collapse: collapse; width: 100%;">
<tr><th style="padding: 8px; text-align: left;">Information</th><th style="padding: 8px; text-align: left;">Value</th></tr>
<tr><td style="padding: 8px;">Employee Name</td><td style="padding: 8px;">{{.Name}}</td></tr>
<tr><td style="padding: 8px;">Employee Code</td><td style="padding: 8px;">{{.Code}}</td></tr>
<tr><td style="padding: 8px;">Employee Phone</td><td style="padding: 8px;">{{.Phone}}</td></tr>
<tr><td style="padding: 8px;">Leave Type</td><td style="padding: 8px;">{{.TypeLabel}}</td></tr>
<tr><td style="padding: 8px;">From Date</td><td style="padding: 8px;">{{.From}}</td></tr>
<tr><td style="padding: 8px;">To Date</td><td style="padding: 8px;">{{.To}}</td></tr>
<tr><td style="padding: 8px;">Leave Description</td><td style="padding: 8px;">{{.Description}}</td></tr>
</table>
</body>
</html>`))

type approvalMailData struct {
	Name        string
	Code        string
	Phone       string
	TypeLabel   string
	From        string
	To          string
	Description string
}

// fanOut resolves the management chain, sends one notification per manager
// and the approval mail. Failures are logged only.
func (e *Engine) fanOut(ctx context.Context, log *zap.Logger, res *Result) {
	chain, err := ResolveChain(ctx, e.Store, res.Employee.ManagerID)
	if err != nil {
		log.Warn("failed to resolve management chain", zap.Error(err))
	}
	res.Recipients = chain

	if e.Notifier != nil {
		msg := notificationMessage(res)
		for _, m := range chain {
			if err := e.Notifier.Notify(ctx, []generic.EmployeeID{m.ID}, msg); err != nil {
				log.Warn("failed to notify manager", zap.String("manager_id", string(m.ID)), zap.Error(err))
			}
		}
	}

	mail, err := e.composeMail(res, chain)
	if err != nil {
		log.Warn("failed to compose approval mail", zap.Error(err))
		return
	}
	if mail == nil {
		log.Warn("no approval mail recipient", zap.String("request_id", string(res.Request.ID)))
		return
	}
	res.Mail = mail
	if e.Mailer == nil {
		return
	}
	if err := e.Mailer.Send(ctx, *mail); err != nil {
		log.Warn("failed to send approval mail", zap.Error(err))
	}
}

func notificationMessage(res *Result) string {
	return fmt.Sprintf("Leave %s to %s is applied by %s [Employee Code: %s]",
		res.Request.FromDate, res.Request.ToDate, res.Employee.FullName(), res.Employee.Code)
}

// composeMail addresses the approval mail. The top administrator mails
// themselves; everyone else mails the immediate manager with the rest of
// the chain in CC. Returns nil when nobody can be addressed.
func (e *Engine) composeMail(res *Result, chain []Employee) (*Mail, error) {
	var to, cc []string
	switch {
	case e.Config.TopAdminRole != "" && res.Employee.Role == e.Config.TopAdminRole:
		if res.Employee.Email != "" {
			to = []string{res.Employee.Email}
		}
	case len(chain) > 0:
		if chain[0].Email != "" {
			to = []string{chain[0].Email}
		}
		for _, m := range chain[1:] {
			if m.Email != "" {
				cc = append(cc, m.Email)
			}
		}
	}
	if len(to) == 0 {
		return nil, nil
	}

	label := res.Type.Name
	if res.Decision.Borrowed {
		label = res.ChargedTo.Name
	}
	var body bytes.Buffer
	err := approvalMail.Execute(&body, approvalMailData{
		Name:        res.Employee.FullName(),
		Code:        res.Employee.Code,
		Phone:       res.Employee.Phone,
		TypeLabel:   label,
		From:        res.Request.FromDate.String(),
		To:          res.Request.ToDate.String(),
		Description: res.Request.Description,
	})
	if err != nil {
		return nil, err
	}
	return &Mail{
		From:     e.Config.MailFrom,
		FromName: e.Config.MailFromName,
		To:       to,
		Subject:  fmt.Sprintf("Leave Application for dates %s to %s", res.Request.FromDate, res.Request.ToDate),
		HTML:     body.String(),
		CC:       cc,
	}, nil
}
