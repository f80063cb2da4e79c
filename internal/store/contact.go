package store

import (
	"context"
	"database/sql"

	"github.com/lungscan/apiserver/types"
)

// ContactRepository handles persistence for contact messages.
type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, msg types.ContactMessage) (types.ContactMessage, error) {
	const query = `
		INSERT INTO contact_messages (user_id, name, email, message, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		msg.UserID,
		msg.Name,
		msg.Email,
		msg.Message,
		msg.IP,
		msg.UserAgent,
		msg.CreatedAt,
	).Scan(&msg.ID); err != nil {
		return types.ContactMessage{}, err
	}
	return msg, nil
}
