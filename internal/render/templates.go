package render

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.KindLabel}} {{.Number}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #222; max-width: 800px; margin: 0 auto; padding: 24px; }
        .header { border-bottom: 2px solid #1a4d8f; padding-bottom: 12px; margin-bottom: 24px; }
        .header h1 { margin: 0; font-size: 22px; }
        .meta { color: #555; font-size: 13px; margin-top: 4px; }
        .status { display: inline-block; padding: 2px 10px; border-radius: 3px; font-size: 12px; font-weight: 600; }
        .status.APPROVED { background: #e6f4ea; color: #137333; }
        .status.PENDING_APPROVAL { background: #fef7e0; color: #b06000; }
        .status.REJECTED { background: #fce8e6; color: #c5221f; }
        table { width: 100%; border-collapse: collapse; margin: 16px 0; }
        th, td { border: 1px solid #ddd; padding: 8px 10px; font-size: 13px; text-align: left; }
        th { background: #f5f7fa; }
        td.amount, th.amount { text-align: right; }
        .total-row td { font-weight: 600; }
        .words { font-style: italic; font-size: 13px; margin: 8px 0 20px; }
        .section { margin-top: 20px; }
        .section h2 { font-size: 15px; border-bottom: 1px solid #eee; padding-bottom: 4px; }
        .history td { font-size: 12px; }
        .footer { margin-top: 32px; padding-top: 12px; border-top: 1px solid #eee; font-size: 11px; color: #777; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.KindLabel}} &mdash; {{.Number}}</h1>
        <div class="meta">{{.Title}} &middot; Date: {{.Date}} &middot; <span class="status {{.Status}}">{{.Status}}</span></div>
    </div>

    <table>
        <tr><th>#</th><th>Item</th><th>Description</th><th class="amount">Qty</th><th>Unit</th><th class="amount">Unit Price</th><th class="amount">Amount</th></tr>
        {{range $i, $li := .LineItems}}
        <tr>
            <td>{{inc $i}}</td>
            <td>{{$li.Name}}</td>
            <td>{{$li.Description}}</td>
            <td class="amount">{{qty $li.Quantity}}</td>
            <td>{{$li.Unit}}</td>
            <td class="amount">{{inr $li.UnitPricePaise}}</td>
            <td class="amount">{{inr $li.AmountPaise}}</td>
        </tr>
        {{end}}
        <tr class="total-row"><td colspan="6">Total</td><td class="amount">{{inr .TotalPaise}}</td></tr>
    </table>
    <p class="words">{{words .TotalPaise}}</p>

    <div class="section">
        <h2>Parties</h2>
        <p>Prepared by: {{.CreatorName}}{{if .ApproverName}}<br>Approver: {{.ApproverName}}{{end}}</p>
    </div>

    {{if .Comments}}
    <div class="section">
        <h2>Comments</h2>
        <p>{{.Comments}}</p>
    </div>
    {{end}}

    {{if .RejectionReason}}
    <div class="section">
        <h2>Rejection Reason</h2>
        <p>{{.RejectionReason}}</p>
    </div>
    {{end}}

    {{if .History}}
    <div class="section">
        <h2>Approval History</h2>
        <table class="history">
            <tr><th>Action</th><th>Actor</th><th>When</th><th>From</th><th>To</th><th>Comments</th></tr>
            {{range .History}}
            <tr>
                <td>{{.Type}}</td>
                <td>{{.ActorID}}</td>
                <td>{{when .Timestamp}}</td>
                <td>{{.PrevStatus}}</td>
                <td>{{.NewStatus}}</td>
                <td>{{.Comments}}</td>
            </tr>
            {{end}}
        </table>
    </div>
    {{end}}

    <div class="footer">Document {{.ID}} &middot; generated by Procure</div>
</body>
</html>`
