package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/hrms-hub/platform-service/internal/models"
)

// TemplateData carries the fields available to notification templates
type TemplateData struct {
	CompanyName         string
	Subdomain           string
	SubscriptionEndDate string
	GracePeriodEndDate  string
	DaysRemaining       int
	YearlyPriceMUR      float64
}

var notificationSubjects = map[models.NotificationType]string{
	models.NotifyReminder30Days:      "Your MorisHR subscription renews in 30 days",
	models.NotifyReminder15Days:      "Your MorisHR subscription renews in 15 days",
	models.NotifyReminder7Days:       "Your MorisHR subscription renews in 7 days",
	models.NotifyReminder3Days:       "Action needed: subscription renews in 3 days",
	models.NotifyReminder1Day:        "Final reminder: subscription renews tomorrow",
	models.NotifyExpiryDay:           "Your MorisHR subscription has expired",
	models.NotifyGracePeriodWarning:  "Grace period active: renew to keep access",
	models.NotifyGracePeriodCritical: "Urgent: account suspension in less than 7 days",
	models.NotifySuspension:          "Your MorisHR account has been suspended",
}

const baseTemplate = `<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>{{.Heading}}</h2>
  <p>Dear {{.Data.CompanyName}},</p>
  {{.Body}}
  <p>If you have already arranged payment, please disregard this message.</p>
  <p>— The MorisHR Team</p>
</body>
</html>`

var notificationBodies = map[models.NotificationType]string{
	models.NotifyReminder30Days: `<p>Your annual subscription for <strong>{{.Subdomain}}</strong> ends on {{.SubscriptionEndDate}} ({{.DaysRemaining}} days from now). Renew at MUR {{printf "%.2f" .YearlyPriceMUR}} to avoid any interruption.</p>`,
	models.NotifyReminder15Days: `<p>Your annual subscription for <strong>{{.Subdomain}}</strong> ends on {{.SubscriptionEndDate}} ({{.DaysRemaining}} days from now).</p>`,
	models.NotifyReminder7Days:  `<p>Only {{.DaysRemaining}} days remain on your subscription for <strong>{{.Subdomain}}</strong>. It ends on {{.SubscriptionEndDate}}.</p>`,
	models.NotifyReminder3Days:  `<p>Your subscription for <strong>{{.Subdomain}}</strong> ends in {{.DaysRemaining}} days, on {{.SubscriptionEndDate}}. Please renew now to keep payroll and attendance running.</p>`,
	models.NotifyReminder1Day:   `<p>Your subscription for <strong>{{.Subdomain}}</strong> ends tomorrow, {{.SubscriptionEndDate}}.</p>`,
	models.NotifyExpiryDay:      `<p>Your subscription for <strong>{{.Subdomain}}</strong> expired today. A 14-day grace period is now active: access continues until {{.GracePeriodEndDate}} pending payment.</p>`,
	models.NotifyGracePeriodWarning: `<p>Your subscription for <strong>{{.Subdomain}}</strong> has expired. Access continues during the grace period until {{.GracePeriodEndDate}}. Renew now to avoid suspension.</p>`,
	models.NotifyGracePeriodCritical: `<p><strong>Your account will be suspended on {{.GracePeriodEndDate}}.</strong> Renew immediately to keep access to <strong>{{.Subdomain}}</strong> and avoid disruption to payroll processing.</p>`,
	models.NotifySuspension: `<p>Your account <strong>{{.Subdomain}}</strong> has been suspended following the end of the grace period. Your data is retained and access will be restored as soon as payment is received.</p>`,
}

// RenderNotification renders the subject and HTML body for a milestone
func RenderNotification(notificationType models.NotificationType, tenant *models.Tenant, now time.Time) (string, string, error) {
	subject, ok := notificationSubjects[notificationType]
	if !ok {
		return "", "", fmt.Errorf("no template for notification type %s", notificationType)
	}

	data := TemplateData{
		CompanyName:    tenant.CompanyName,
		Subdomain:      tenant.Subdomain,
		YearlyPriceMUR: tenant.YearlyPriceMUR,
	}
	if tenant.SubscriptionEndDate != nil {
		data.SubscriptionEndDate = tenant.SubscriptionEndDate.Format("2 January 2006")
		data.DaysRemaining = tenant.DaysUntilExpiry(now)
	}
	if tenant.GracePeriodStartDate != nil {
		data.GracePeriodEndDate = tenant.GracePeriodStartDate.AddDate(0, 0, models.GracePeriodDays).Format("2 January 2006")
	}

	bodyTmpl, err := template.New(string(notificationType)).Parse(notificationBodies[notificationType])
	if err != nil {
		return "", "", fmt.Errorf("failed to parse body template: %w", err)
	}
	var bodyBuf bytes.Buffer
	if err := bodyTmpl.Execute(&bodyBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to render body: %w", err)
	}

	outer, err := template.New("base").Parse(baseTemplate)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse base template: %w", err)
	}
	var out bytes.Buffer
	err = outer.Execute(&out, struct {
		Heading string
		Data    TemplateData
		Body    template.HTML
	}{
		Heading: subject,
		Data:    data,
		Body:    template.HTML(bodyBuf.String()),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to render email: %w", err)
	}

	return subject, out.String(), nil
}
