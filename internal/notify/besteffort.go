package notify

import "go.uber.org/zap"

// Sender is what the workflow depends on for outbound mail.
type Sender interface {
	SendApprovalRequest(to string, data ApprovalRequestData) error
	SendDecisionNotice(to string, data DecisionNoticeData) error
}

// BestEffort wraps a Sender so that every failure is logged and absorbed.
// Submissions and decisions succeed regardless of notifier health.
type BestEffort struct {
	next   Sender
	logger *zap.Logger
}

func NewBestEffort(next Sender, logger *zap.Logger) *BestEffort {
	return &BestEffort{next: next, logger: logger}
}

func (b *BestEffort) SendApprovalRequest(to string, data ApprovalRequestData) error {
	if err := b.next.SendApprovalRequest(to, data); err != nil {
		b.logger.Warn("approval request email not delivered",
			zap.String("to", to),
			zap.String("number", data.Number),
			zap.Error(err))
	}
	return nil
}

func (b *BestEffort) SendDecisionNotice(to string, data DecisionNoticeData) error {
	if err := b.next.SendDecisionNotice(to, data); err != nil {
		b.logger.Warn("decision notice email not delivered",
			zap.String("to", to),
			zap.String("number", data.Number),
			zap.Error(err))
	}
	return nil
}
