package services

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"sensiboost/config"
	"sensiboost/logging"
	"sensiboost/models"
)

type mailSender func(*mail.SGMailV3) (int, error)

func sendGridSender(apiKey string) mailSender {
	client := sendgrid.NewSendClient(apiKey)
	return func(m *mail.SGMailV3) (int, error) {
		resp, err := client.Send(m)
		if err != nil {
			return 0, err
		}
		return resp.StatusCode, nil
	}
}

// Notifier tells people about receipts. Every send is best effort and runs
// in its own goroutine; a nil *Notifier does nothing.
type Notifier struct {
	send       mailSender
	from       *mail.Email
	adminEmail string
	slackURL   string
	client     *http.Client
	log        *zap.Logger
	wg         sync.WaitGroup
}

// NewNotifier returns nil when neither mail nor Slack is configured.
func NewNotifier(cfg *config.Config, log *zap.Logger) *Notifier {
	log = logging.OrNop(log)
	if !cfg.MailEnabled() && !cfg.SlackEnabled() {
		log.Info("notify.disabled")
		return nil
	}
	n := &Notifier{
		adminEmail: cfg.Mail.AdminEmail,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
	if cfg.MailEnabled() {
		n.send = sendGridSender(cfg.Mail.SendGridKey)
		n.from = mail.NewEmail("SensiBoost", cfg.Mail.From)
	}
	if cfg.SlackEnabled() {
		n.slackURL = cfg.Mail.SlackWebhook
	}
	return n
}

func (n *Notifier) async(event string, fn func()) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				n.log.Error("notify.panic", zap.String("event", event), zap.Any("recovered", r))
			}
		}()
		fn()
	}()
}

// Wait blocks until in-flight sends finish. Used on shutdown.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *Notifier) sendMail(event, toName, toAddr, subject, body string) {
	if n.send == nil || toAddr == "" {
		return
	}
	msg := mail.NewSingleEmail(n.from, subject, mail.NewEmail(toName, toAddr), body, body)
	status, err := n.send(msg)
	if err != nil {
		n.log.Warn("notify.mail.failed", zap.String("event", event), zap.Error(err))
		return
	}
	if status >= 400 {
		n.log.Warn("notify.mail.rejected", zap.String("event", event), zap.Int("status", status))
		return
	}
	n.log.Info("notify.mail.sent", zap.String("event", event), zap.Int("status", status))
}

// ReceiptUploaded pings the admin about a receipt waiting for review.
func (n *Notifier) ReceiptUploaded(rec models.ReceiptRecord) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("Nuevo comprobante Nequi\n\nCuenta: %s\nArchivo: %s\nID: %d\nSubido: %s",
		rec.Email, rec.Filename, rec.ID, rec.UploadedAt.Format(time.RFC3339))

	n.async("receipt.uploaded", func() {
		n.sendMail("receipt.uploaded", "Admin", n.adminEmail,
			fmt.Sprintf("[SensiBoost] Comprobante pendiente #%d", rec.ID), text)
		if n.slackURL != "" {
			if err := postSlack(n.client, n.slackURL, text); err != nil {
				n.log.Warn("notify.slack.failed", zap.Error(err))
			}
		}
	})
}

// ReceiptApproved lets the account know premium is active.
func (n *Notifier) ReceiptApproved(rec models.ReceiptRecord) {
	if n == nil {
		return
	}
	body := strings.Join([]string{
		"¡Tu pago fue aprobado!",
		"",
		"Tu cuenta " + rec.Email + " ya tiene acceso a la guía premium.",
		"Usa este mismo correo en la página para pedir tu guía.",
	}, "\n")

	n.async("receipt.approved", func() {
		n.sendMail("receipt.approved", rec.Email, rec.Email, "[SensiBoost] Premium activado", body)
	})
}
