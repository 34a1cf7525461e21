// internal/workers/communication/send-grant-digest/models.go
package sendgrantdigest

import "spark-workers/internal/grants"

type Input struct {
	UserID        string                `json:"userId"`
	IdeaName      string                `json:"ideaName,omitempty"`
	MatchedGrants []grants.MatchedGrant `json:"matchedGrants"` // ranked, best first
}

type Output struct {
	NotificationID string `json:"notificationId"`
	EmailStatus    string `json:"emailStatus"` // sent, failed, disabled
	SMSStatus      string `json:"smsStatus"`
	GrantCount     int    `json:"grantCount"`
	DeadlineCount  int    `json:"deadlineCount"`
	SentAt         string `json:"sentAt"` // ISO 8601
}
