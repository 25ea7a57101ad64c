package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"asapshop-backend/internal/client"
	"asapshop-backend/internal/metrics"
	"asapshop-backend/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

//go:embed templates/*.html
var templateFS embed.FS

var mailTemplates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"money":     formatMoney,
	"lineTotal": lineTotal,
	"addr":      addressField,
}).ParseFS(templateFS, "templates/*.html"))

func formatMoney(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}

func lineTotal(it model.OrderItem) decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Recipient struct {
	Email string
	Name  string
}

// OrderMail is what the order e-mails show. ID is the gateway payment id.
type OrderMail struct {
	ID      string
	Items   []model.OrderItem
	Total   decimal.Decimal
	Address datatypes.JSONMap
	Coupon  string
}

type ContactMessage struct {
	Name    string
	Email   string
	Subject string
	Message string
}

type Notifier interface {
	NotifyOrderPaid(ctx context.Context, order OrderMail, to Recipient) error
	SendVerificationCode(ctx context.Context, to Recipient, code string) error
	SendContact(ctx context.Context, msg ContactMessage) error
}

type notifierImpl struct {
	sender       client.MailSender
	adminEmail   string
	contactEmail string
	log          *zap.Logger
}

func NewNotifier(sender client.MailSender, adminEmail, contactEmail string, log *zap.Logger) Notifier {
	return &notifierImpl{
		sender:       sender,
		adminEmail:   adminEmail,
		contactEmail: contactEmail,
		log:          log,
	}
}

type orderMailView struct {
	Order    OrderMail
	Name     string
	Customer string
}

// NotifyOrderPaid sends the customer confirmation and the admin sale alert concurrently.
// Both are attempted even if one fails; the first error is returned.
func (n *notifierImpl) NotifyOrderPaid(ctx context.Context, order OrderMail, to Recipient) error {
	view := orderMailView{Order: order, Name: to.Name, Customer: to.Name}
	if view.Customer == "" {
		view.Customer = to.Email
	}
	if view.Customer == "" {
		view.Customer = "Não informado"
	}

	var g errgroup.Group
	if to.Email != "" {
		g.Go(func() error {
			html, err := render("order_customer.html", view)
			if err != nil {
				return err
			}
			return n.send(ctx, "order_customer", client.Mail{
				To:      to.Email,
				Subject: fmt.Sprintf("Pedido #%s - Confirmação de Compra", order.ID),
				HTML:    html,
			})
		})
	} else {
		n.log.Warn("no customer email for order", zap.String("payment_id", order.ID))
	}

	if n.adminEmail != "" {
		g.Go(func() error {
			html, err := render("order_admin.html", view)
			if err != nil {
				return err
			}
			return n.send(ctx, "order_admin", client.Mail{
				To:      n.adminEmail,
				Subject: fmt.Sprintf("🛒 Nova Venda #%s", order.ID),
				HTML:    html,
			})
		})
	}

	return g.Wait()
}

func (n *notifierImpl) SendVerificationCode(ctx context.Context, to Recipient, code string) error {
	html, err := render("verification.html", struct{ Name, Code string }{to.Name, code})
	if err != nil {
		return err
	}
	return n.send(ctx, "verification", client.Mail{
		To:      to.Email,
		Subject: "Confirmação de cadastro - código de verificação",
		HTML:    html,
	})
}

// SendContact forwards a site contact form to the shop inbox. Replies go to the visitor.
func (n *notifierImpl) SendContact(ctx context.Context, msg ContactMessage) error {
	return n.send(ctx, "contact", client.Mail{
		To:       n.contactEmail,
		Subject:  "Contato via site - " + msg.Subject,
		Text:     msg.Message,
		ReplyTo:  msg.Email,
		FromName: msg.Name,
	})
}

func (n *notifierImpl) send(ctx context.Context, kind string, m client.Mail) error {
	if err := n.sender.Send(ctx, m); err != nil {
		metrics.NotificationFailures.WithLabelValues(kind).Inc()
		return fmt.Errorf("%s mail: %w", kind, err)
	}
	return nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
