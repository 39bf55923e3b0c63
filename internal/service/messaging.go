package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JosuaGoecking/Messenger/internal/domain"
)

// MessagingService delivers messages to users and groups. A group
// recipient is expanded to its member set at send time; members added
// later do not receive the message.
type MessagingService struct {
	mu     sync.Mutex
	users  domain.UserRepository
	groups domain.GroupRepository
}

// NewMessagingService creates a new MessagingService.
func NewMessagingService(users domain.UserRepository, groups domain.GroupRepository) *MessagingService {
	return &MessagingService{users: users, groups: groups}
}

// Send appends the text to the recipient's mailbox, or to every member
// mailbox when the recipient is a group. The body carries the sender,
// and for group sends the group name. Returns domain.ErrNotFound when
// the sender is not a user or the recipient is neither a user nor a
// group. There is no delivery acknowledgment.
func (s *MessagingService) Send(ctx context.Context, sender, recipient, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	senderExists, err := s.users.Exists(ctx, sender)
	if err != nil {
		return err
	}
	if !senderExists {
		return fmt.Errorf("sender %s: %w", sender, domain.ErrNotFound)
	}

	target, err := s.resolve(ctx, recipient)
	if err != nil {
		return err
	}

	if target.Kind == domain.RecipientUser {
		return s.users.AppendMessage(ctx, target.Name, fmt.Sprintf("From %s: %s", sender, text))
	}

	members, err := s.groups.Members(ctx, target.Name)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("From %s: %s (sent to %s)", sender, text, target.Name)
	for _, member := range members {
		if err := s.users.AppendMessage(ctx, member, body); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Membership should never outlive the user record, but a
				// vanished member must not fail the whole broadcast.
				slog.Warn("skipping vanished group member", "group", target.Name, "member", member)
				continue
			}
			return fmt.Errorf("deliver to %s: %w", member, err)
		}
	}
	return nil
}

// Sync returns the user's unread messages in arrival order and marks
// them read; the next call without new mail returns nothing.
func (s *MessagingService) Sync(ctx context.Context, user string) ([]string, error) {
	return s.users.DrainUnread(ctx, user)
}

// History returns every message in the user's mailbox in arrival order,
// read or not.
func (s *MessagingService) History(ctx context.Context, user string) ([]domain.Message, error) {
	return s.users.ListMessages(ctx, user)
}

// resolve maps a recipient name to a user or a group, in that order. A
// name naming both resolves to the user.
func (s *MessagingService) resolve(ctx context.Context, name string) (domain.Recipient, error) {
	isUser, err := s.users.Exists(ctx, name)
	if err != nil {
		return domain.Recipient{}, err
	}
	if isUser {
		return domain.Recipient{Kind: domain.RecipientUser, Name: name}, nil
	}

	isGroup, err := s.groups.Exists(ctx, name)
	if err != nil {
		return domain.Recipient{}, err
	}
	if isGroup {
		return domain.Recipient{Kind: domain.RecipientGroup, Name: name}, nil
	}

	return domain.Recipient{}, fmt.Errorf("recipient %s: %w", name, domain.ErrNotFound)
}
