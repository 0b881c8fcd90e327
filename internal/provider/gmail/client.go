// Package gmail implements the mail back-end on top of the Gmail API.
//
// The client draws live access tokens through the auth manager on every
// call, so a long sync never fails on a token that expired mid-run.
package gmail

import (
	"context"
	"fmt"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/bobysf12/mail-cli/internal/auth"
	"github.com/bobysf12/mail-cli/internal/provider"
)

const (
	labelInbox  = "INBOX"
	labelUnread = "UNREAD"
)

// Client implements provider.Mail for one account.
type Client struct {
	svc   *gmailapi.UsersService
	email string

	// labels memoizes the provider's label set (keyed by both name and
	// ID) for the lifetime of this client, so one session never issues
	// duplicate label-list or label-create calls for the same name. It
	// is per-instance state; the adapter is used single-threaded.
	labels map[string]string
}

var _ provider.Mail = (*Client)(nil)

// New creates a Gmail client for the account. It fails fast with
// auth.ErrNotAuthenticated when no credential is stored for the email.
func New(ctx context.Context, email string, tokens *auth.Manager, opts ...option.ClientOption) (*Client, error) {
	if !tokens.HasCredential(email) {
		return nil, fmt.Errorf("%w: %s", auth.ErrNotAuthenticated, email)
	}

	opts = append([]option.ClientOption{option.WithTokenSource(tokens.TokenSource(ctx, email))}, opts...)
	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Gmail service: %w", err)
	}

	return &Client{
		svc:    svc.Users,
		email:  email,
		labels: make(map[string]string),
	}, nil
}

// Messages lists full message records received within the last `days` days.
// The ID listing follows the page cursor until exhausted; details are then
// fetched sequentially, one request per remote ID, in listing order.
func (c *Client) Messages(ctx context.Context, days int) ([]provider.Message, error) {
	after := time.Now().AddDate(0, 0, -days).Unix()
	query := fmt.Sprintf("after:%d", after)

	var ids []string
	pageToken := ""
	for {
		call := c.svc.Messages.List("me").Q(query).MaxResults(100).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, provider.WrapErr("listing messages", err)
		}
		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	messages := make([]provider.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, provider.WrapErr(fmt.Sprintf("fetching message %s", id), err)
		}
		messages = append(messages, mapMessage(msg))
	}

	return messages, nil
}

// Message fetches one message including its decoded plain-text body.
func (c *Client) Message(ctx context.Context, id string) (*provider.MessageDetail, error) {
	msg, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, provider.WrapErr(fmt.Sprintf("fetching message %s", id), err)
	}

	detail := &provider.MessageDetail{
		Message: mapMessage(msg),
		Body:    messageBody(msg),
	}
	return detail, nil
}

// loadLabels populates the label memo on first use.
func (c *Client) loadLabels(ctx context.Context) error {
	if len(c.labels) > 0 {
		return nil
	}

	res, err := c.svc.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return provider.WrapErr("listing labels", err)
	}

	for _, label := range res.Labels {
		c.labels[label.Name] = label.Id
		c.labels[label.Id] = label.Id
	}
	return nil
}

// EnsureLabel returns the provider label ID for name, creating the label
// remotely when needed and updating the memo immediately.
func (c *Client) EnsureLabel(ctx context.Context, name string) (string, error) {
	if err := c.loadLabels(ctx); err != nil {
		return "", err
	}

	if id, ok := c.labels[name]; ok {
		return id, nil
	}

	created, err := c.svc.Labels.Create("me", &gmailapi.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", provider.WrapErr(fmt.Sprintf("creating label %q", name), err)
	}

	c.labels[created.Name] = created.Id
	c.labels[created.Id] = created.Id
	return created.Id, nil
}

// AddLabel applies the named label to a message, creating it if necessary.
func (c *Client) AddLabel(ctx context.Context, messageID, labelName string) error {
	labelID, err := c.EnsureLabel(ctx, labelName)
	if err != nil {
		return err
	}

	_, err = c.svc.Messages.Modify("me", messageID, &gmailapi.ModifyMessageRequest{
		AddLabelIds: []string{labelID},
	}).Context(ctx).Do()
	return provider.WrapErr(fmt.Sprintf("adding label %q", labelName), err)
}

// RemoveLabel removes the named label from a message. Unknown labels are a
// no-op: there is nothing to remove remotely.
func (c *Client) RemoveLabel(ctx context.Context, messageID, labelName string) error {
	if err := c.loadLabels(ctx); err != nil {
		return err
	}

	labelID, ok := c.labels[labelName]
	if !ok {
		return nil
	}

	_, err := c.svc.Messages.Modify("me", messageID, &gmailapi.ModifyMessageRequest{
		RemoveLabelIds: []string{labelID},
	}).Context(ctx).Do()
	return provider.WrapErr(fmt.Sprintf("removing label %q", labelName), err)
}

// Archive removes the INBOX label from a message.
func (c *Client) Archive(ctx context.Context, messageID string) error {
	_, err := c.svc.Messages.Modify("me", messageID, &gmailapi.ModifyMessageRequest{
		RemoveLabelIds: []string{labelInbox},
	}).Context(ctx).Do()
	return provider.WrapErr(fmt.Sprintf("archiving message %s", messageID), err)
}

// Delete permanently deletes a message on the provider side.
func (c *Client) Delete(ctx context.Context, messageID string) error {
	err := c.svc.Messages.Delete("me", messageID).Context(ctx).Do()
	return provider.WrapErr(fmt.Sprintf("deleting message %s", messageID), err)
}
