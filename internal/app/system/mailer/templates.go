// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/raaulc/shared-tasks/internal/app/system/htmlsanitize"
)

// InviteEmailData holds data for workspace invite email templates.
type InviteEmailData struct {
	WorkspaceName string
	InviteLink    string
}

// BuildInviteEmail creates an invite email with both HTML and text bodies.
// The workspace name is stripped of markup before it is embedded.
func BuildInviteEmail(data InviteEmailData) Email {
	data.WorkspaceName = htmlsanitize.Strip(data.WorkspaceName)
	if data.WorkspaceName == "" {
		data.WorkspaceName = "our workspace"
	}
	return Email{
		To:       "", // Set by caller
		Subject:  fmt.Sprintf("You're invited to join %s", data.WorkspaceName),
		TextBody: buildInviteText(data),
		HTMLBody: buildInviteHTML(data),
	}
}

func buildInviteText(data InviteEmailData) string {
	var buf bytes.Buffer
	buf.WriteString("Hi!\n\n")
	buf.WriteString(fmt.Sprintf("You've been invited to join %s on Shared Tasks.\n\n", data.WorkspaceName))
	buf.WriteString("Open this link to join:\n")
	buf.WriteString(data.InviteLink + "\n\n")
	buf.WriteString("If you didn't expect this invite, you can ignore this email.\n")
	return buf.String()
}

func buildInviteHTML(data InviteEmailData) string {
	tmpl := template.Must(template.New("invite").Parse(inviteHTMLTemplate))
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}

const inviteHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Workspace Invite</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f8f9f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f8f9f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e2e6e3;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #8a9a5b;">Shared Tasks</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 24px; font-size: 16px; color: #323338; line-height: 1.5;">
                You've been invited to join <strong>{{.WorkspaceName}}</strong>.
              </p>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.InviteLink}}" style="display: inline-block; padding: 14px 32px; background-color: #8a9a5b; color: #ffffff; text-decoration: none; font-size: 16px; font-weight: 500; border-radius: 6px;">
                      Join workspace
                    </a>
                  </td>
                </tr>
              </table>
              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af; text-align: center;">
                Or paste this link into your browser:<br>{{.InviteLink}}
              </p>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e2e6e3; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you did not expect this invite, you can safely ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
