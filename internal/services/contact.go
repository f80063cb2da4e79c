package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lungscan/apiserver/types"
)

// ErrEmptyMessage is returned when a contact message has no content.
var ErrEmptyMessage = errors.New("message is required")

// ContactRepository defines persistence operations for contact messages.
type ContactRepository interface {
	Create(ctx context.Context, msg types.ContactMessage) (types.ContactMessage, error)
}

// ContactService encapsulates contact-form use-cases.
type ContactService struct {
	repo ContactRepository
}

func NewContactService(repo ContactRepository) *ContactService {
	return &ContactService{repo: repo}
}

// Save stores a contact message on behalf of the given user. The
// message sender's name falls back to their email when no name is set.
func (s *ContactService) Save(ctx context.Context, user types.User, message string, sentAt time.Time, ip, userAgent string) (types.ContactMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return types.ContactMessage{}, ErrEmptyMessage
	}

	name := user.Name
	if name == "" {
		name = user.Email
	}
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	msg := types.ContactMessage{
		UserID:    int64(user.ID),
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(user.Email)),
		Message:   message,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: sentAt,
	}
	return s.repo.Create(ctx, msg)
}
