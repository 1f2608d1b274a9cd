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

const conversationColumns = "id, participant_ids, created_at, updated_at, last_message_at"

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	query := `
		INSERT INTO conversations (id, participant_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, conv.ID, conv.ParticipantIDs, conv.CreatedAt, conv.UpdatedAt)
	return err
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := "SELECT " + conversationColumns + " FROM conversations WHERE id = $1"
	return scanConversation(r.pool.QueryRow(ctx, query, id))
}

func (r *ConversationRepo) FindByParticipants(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE participant_ids @> ARRAY[$1, $2]::uuid[]
		ORDER BY created_at, id
		LIMIT 1`
	return scanConversation(r.pool.QueryRow(ctx, query, userID, otherUserID))
}

func (r *ConversationRepo) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE $1 = ANY(participant_ids)
		ORDER BY COALESCE(last_message_at, created_at) DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.ID, &conv.ParticipantIDs, &conv.CreatedAt, &conv.UpdatedAt, &conv.LastMessageAt,
		); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (r *ConversationRepo) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE conversations SET last_message_at = $1, updated_at = $1 WHERE id = $2`, at, id)
	return err
}

func (r *ConversationRepo) RemoveParticipant(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE conversations
		SET participant_ids = array_remove(participant_ids, $1), updated_at = now()
		WHERE $1 = ANY(participant_ids)`, userID)
	return err
}

func (r *ConversationRepo) DeleteEmpty(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		DELETE FROM conversations
		WHERE cardinality(participant_ids) = 0
		RETURNING id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := row.Scan(&conv.ID, &conv.ParticipantIDs, &conv.CreatedAt, &conv.UpdatedAt, &conv.LastMessageAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}
