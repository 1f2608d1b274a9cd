package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/relaychat/internal/domain"
)

const messageSelect = `
	SELECT m.id, m.conversation_id, m.user_id, m.text,
		m.file_url, m.file_type, m.file_name, m.audio,
		m.delivered, m.read, m.reactions, m.created_at, m.updated_at,
		u.id, u.name, u.email, u.image, u.created_at, u.updated_at
	FROM messages m
	JOIN users u ON m.user_id = u.id`

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	reactions := msg.Reactions
	if reactions == nil {
		reactions = []domain.Reaction{}
	}

	query := `
		INSERT INTO messages (id, conversation_id, user_id, text, file_url, file_type, file_name,
			audio, delivered, read, reactions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.UserID, msg.Text, msg.FileURL, msg.FileType, msg.FileName,
		msg.Audio, msg.Delivered, msg.Read, reactions, msg.CreatedAt, msg.UpdatedAt,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	msg, err := scanMessage(r.pool.QueryRow(ctx, messageSelect+` WHERE m.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, messageSelect+`
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC, m.id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepo) Latest(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	msg, err := scanMessage(r.pool.QueryRow(ctx, messageSelect+`
		WHERE m.conversation_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT 1`, conversationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *MessageRepo) CountUnread(ctx context.Context, conversationID, readerID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM messages
		WHERE conversation_id = $1 AND user_id <> $2 AND NOT read`,
		conversationID, readerID,
	).Scan(&count)
	return count, err
}

func (r *MessageRepo) MarkStatus(ctx context.Context, id uuid.UUID, delivered, read bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE messages
		SET delivered = delivered OR $1, read = read OR $2, updated_at = $3
		WHERE id = $4`, delivered, read, time.Now(), id)
	return err
}

func (r *MessageRepo) UpdateReactions(ctx context.Context, id uuid.UUID, reactions []domain.Reaction) error {
	if reactions == nil {
		reactions = []domain.Reaction{}
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE messages SET reactions = $1, updated_at = $2 WHERE id = $3`, reactions, time.Now(), id)
	return err
}

func (r *MessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	return err
}

func (r *MessageRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `DELETE FROM messages WHERE user_id = $1 RETURNING id`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	var u domain.User
	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.UserID, &msg.Text,
		&msg.FileURL, &msg.FileType, &msg.FileName, &msg.Audio,
		&msg.Delivered, &msg.Read, &msg.Reactions, &msg.CreatedAt, &msg.UpdatedAt,
		&u.ID, &u.Name, &u.Email, &u.Image, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	msg.User = &u
	return &msg, nil
}
