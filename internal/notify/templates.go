package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

const (
	confirmationSubject  = "Your Azura order is confirmed"
	reviewRequestSubject = "We'd Love Your Feedback on Your Recent Order!"
)

type emailLine struct {
	Title     string
	ImageURL  string
	ReviewURL string
	Quantity  int
	Price     string
	Subtotal  string
}

type emailData struct {
	Name    string
	OrderID string
	Status  string
	Total   string
	Lines   []emailLine
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`
<div style="font-family: Arial, sans-serif; line-height: 1.6;">
  <p>Hello {{.Name}}, thank you for your order!</p>
  <p>Order <strong>{{.OrderID}}</strong> is {{.Status}}.</p>
  <table style="border-collapse: collapse;">
    {{range .Lines}}
    <tr>
      <td style="padding: 4px 12px 4px 0;">{{.Title}}</td>
      <td style="padding: 4px 12px;">{{.Quantity}} × {{.Price}}</td>
      <td style="padding: 4px 0;">{{.Subtotal}}</td>
    </tr>
    {{end}}
  </table>
  <p><strong>Total: {{.Total}}</strong></p>
</div>
`))

var reviewRequestTemplate = template.Must(template.New("review").Parse(`
<div style="font-family: Arial, sans-serif; line-height: 1.6;">
  <p>Hello {{.Name}}, thank you for your recent purchase. Your order has been delivered, and we would love to hear your thoughts!</p>
  <p>Please review the following products:</p>
  {{range .Lines}}
  <div style="margin-bottom: 16px; padding-bottom: 16px; border-bottom: 1px solid #ddd;">
    <a href="{{.ReviewURL}}" style="color: #1a73e8; font-size: 16px; text-decoration: none;">{{.Title}}</a>
    {{if .ImageURL}}<div style="margin-top: 8px;"><img src="{{.ImageURL}}" alt="{{.Title}}" style="width: 100px; height: auto; border-radius: 4px;" /></div>{{end}}
  </div>
  {{end}}
  <p>We appreciate your feedback!</p>
</div>
`))

func render(t *template.Template, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
