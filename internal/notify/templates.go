package notify

const approvalRequestTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Approval requested</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #1a4d8f; padding-bottom: 10px; margin-bottom: 20px; }
        .summary { background: #f5f7fa; padding: 12px 16px; border-radius: 4px; margin: 16px 0; }
        .button { display: inline-block; padding: 12px 24px; color: white; text-decoration: none; border-radius: 4px; margin: 8px 8px 8px 0; }
        .approve { background: #137333; }
        .reject { background: #c5221f; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
        .link { word-break: break-all; color: #1a4d8f; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Hi {{.ApproverName}},</h2>

    <p>{{.CreatorName}} has submitted a {{.KindLabel}} for your approval.</p>

    <div class="summary">
        <strong>{{.KindLabel}} {{.Number}}</strong><br>
        {{.Title}}<br>
        Total: {{.Total}}
    </div>

    <p>
        <a href="{{.ApproveURL}}" class="button approve">Approve</a>
        <a href="{{.RejectURL}}" class="button reject">Reject</a>
    </p>

    <p>Or copy and paste a link into your browser:</p>
    <p class="link">{{.ApproveURL}}</p>
    <p class="link">{{.RejectURL}}</p>

    <p>These links will expire in {{.ExpiryHours}} hours.</p>

    <div class="footer">
        <p>You are receiving this because you are the designated approver for this document. No sign-in is required.</p>
    </div>
</body>
</html>`

const decisionNoticeTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Decision recorded</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #1a4d8f; padding-bottom: 10px; margin-bottom: 20px; }
        .summary { background: #f5f7fa; padding: 12px 16px; border-radius: 4px; margin: 16px 0; }
        .note { background: #fff3cd; padding: 12px; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Hi {{.CreatorName}},</h2>

    <p>Your {{.KindLabel}} has been <strong>{{.Outcome}}</strong>.</p>

    <div class="summary">
        <strong>{{.KindLabel}} {{.Number}}</strong><br>
        {{.Title}}
    </div>

    {{if .Note}}
    <div class="note">
        {{.Note}}
    </div>
    {{end}}

    <div class="footer">
        <p>This notice was generated automatically by {{.AppName}}.</p>
    </div>
</body>
</html>`
