package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

// MessageSender is the slice of the Lark IM API the notifier needs
type MessageSender interface {
	SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error)
}

// Notifier delivers notifications as Lark rich-text posts addressed by email
type Notifier struct {
	sender MessageSender
	logger *zap.Logger
}

// NewNotifier creates a Lark notifier
func NewNotifier(sender MessageSender, logger *zap.Logger) *Notifier {
	return &Notifier{sender: sender, logger: logger}
}

var _ port.Notifier = (*Notifier)(nil)

// Channel returns the delivery channel name
func (n *Notifier) Channel() string {
	return entity.ChannelLark
}

// Send posts msg to the Lark user registered under recipientEmail
func (n *Notifier) Send(ctx context.Context, recipientEmail string, msg port.Message) error {
	if recipientEmail == "" {
		return fmt.Errorf("recipient email cannot be empty")
	}

	content, err := postContent(msg)
	if err != nil {
		return err
	}

	messageID, err := n.sender.SendMessage(ctx, "email", recipientEmail, "post", content)
	if err != nil {
		return fmt.Errorf("lark delivery failed: %w", err)
	}

	n.logger.Info("Lark notification sent",
		zap.String("kind", msg.Kind),
		zap.String("recipient", recipientEmail),
		zap.String("message_id", messageID))
	return nil
}

type postElement struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

type post struct {
	Title   string          `json:"title"`
	Content [][]postElement `json:"content"`
}

// postContent renders the message body one paragraph per line
func postContent(msg port.Message) (string, error) {
	p := post{Title: msg.Subject}
	for _, line := range strings.Split(strings.TrimRight(msg.Body, "\n"), "\n") {
		p.Content = append(p.Content, []postElement{{Tag: "text", Text: line}})
	}

	data, err := json.Marshal(map[string]post{"en_us": p})
	if err != nil {
		return "", fmt.Errorf("failed to marshal lark post: %w", err)
	}
	return string(data), nil
}
