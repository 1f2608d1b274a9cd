// Package reconciler keeps a client's view of one conversation in step with
// the API and the relay, and drives the receiver side of delivery status:
// every message from someone else is marked delivered, then read.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/client"
	"github.com/vedran77/relaychat/internal/domain"
	"github.com/vedran77/relaychat/internal/transport/relay"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

var ErrInvalidInterval = errors.New("poll interval must be positive")

// API is the subset of the REST client the reconciler needs.
type API interface {
	Messages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
	SendMessage(ctx context.Context, conversationID uuid.UUID, text string) (*domain.Message, error)
	SendFile(ctx context.Context, conversationID uuid.UUID, text, fileName string, r io.Reader) (*domain.Message, error)
	MarkStatus(ctx context.Context, messageID uuid.UUID, update client.StatusUpdate) (*domain.Message, error)
	React(ctx context.Context, messageID uuid.UUID, emoji string, action domain.ReactionAction) (*domain.Message, error)
	DeleteMessage(ctx context.Context, messageID uuid.UUID) error
	DeleteMessages(ctx context.Context, messageIDs []uuid.UUID) ([]uuid.UUID, error)
}

// Emitter publishes envelopes on the relay. *relay.Conn satisfies it.
type Emitter interface {
	Send(ctx context.Context, kind relay.Kind, payload any) error
}

type Config struct {
	UserID         uuid.UUID
	ConversationID uuid.UUID
	// Concurrency bounds the status PATCHes in flight during a pass.
	Concurrency int
	// OnChange, if set, is called with the visible messages after anything
	// changes them.
	OnChange func([]domain.Message)
}

type Reconciler struct {
	api     API
	emitter Emitter
	cfg     Config
	cache   *Cache
	log     *zap.Logger
}

// PassResult counts what one reconciliation pass did.
type PassResult struct {
	Fetched   int
	Delivered int
	Read      int
	Failed    int
}

// New builds a reconciler. emitter may be nil, in which case nothing is
// published on the relay.
func New(api API, emitter Emitter, cfg Config, log *zap.Logger) *Reconciler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Reconciler{
		api:     api,
		emitter: emitter,
		cfg:     cfg,
		cache:   NewCache(),
		log: log.With(
			zap.Stringer("user_id", cfg.UserID),
			zap.Stringer("conversation_id", cfg.ConversationID),
		),
	}
}

func (r *Reconciler) Cache() *Cache {
	return r.cache
}

func (r *Reconciler) Messages() []domain.Message {
	return r.cache.Messages()
}

// Pass fetches the conversation, merges it into the cache and marks every
// message from another user delivered and then read. Messages are handled
// concurrently; a failed PATCH is logged and counted, never retried. The
// returned error is non-nil only when the fetch itself fails.
func (r *Reconciler) Pass(ctx context.Context) (PassResult, error) {
	var res PassResult

	fetched, err := r.fetch(ctx)
	if err != nil {
		return res, err
	}
	res.Fetched = fetched

	var mu sync.Mutex
	count := func(field *int) {
		mu.Lock()
		*field++
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, m := range r.cache.Messages() {
		if m.UserID == r.cfg.UserID || (m.Delivered && m.Read) {
			continue
		}

		g.Go(func() error {
			if !m.Delivered {
				updated, err := r.api.MarkStatus(gctx, m.ID, client.StatusUpdate{Delivered: true})
				if err != nil {
					r.log.Warn("marking delivered failed", zap.Stringer("message_id", m.ID), zap.Error(err))
					count(&res.Failed)
					return nil
				}
				r.cache.Replace(*updated)
				count(&res.Delivered)
			}

			if !m.Read {
				updated, err := r.api.MarkStatus(gctx, m.ID, client.StatusUpdate{Read: true})
				if err != nil {
					r.log.Warn("marking read failed", zap.Stringer("message_id", m.ID), zap.Error(err))
					count(&res.Failed)
					return nil
				}
				r.cache.Replace(*updated)
				count(&res.Read)
			}
			return nil
		})
	}
	_ = g.Wait()

	r.changed()
	return res, nil
}

// Load fetches the conversation into the cache without touching delivery
// status. It returns the number of messages fetched.
func (r *Reconciler) Load(ctx context.Context) (int, error) {
	n, err := r.fetch(ctx)
	if err != nil {
		return 0, err
	}
	r.changed()
	return n, nil
}

func (r *Reconciler) fetch(ctx context.Context) (int, error) {
	fetched, err := r.api.Messages(ctx, r.cfg.ConversationID)
	if err != nil {
		return 0, fmt.Errorf("fetching messages: %w", err)
	}
	r.cache.Merge(fetched)
	return len(fetched), nil
}

// HandleEnvelope applies a relay event to the cache. New messages are only
// added; their status is updated on the next pass.
func (r *Reconciler) HandleEnvelope(env relay.Envelope) {
	changed := false

	switch env.Kind {
	case relay.KindMessageSent:
		msg, err := env.Message()
		if err != nil {
			r.log.Debug("ignoring malformed message event", zap.Error(err))
			return
		}
		if msg.ConversationID != r.cfg.ConversationID {
			return
		}
		changed = r.cache.Observe(*msg)

	case relay.KindMessageDeleted:
		p, err := env.MessageDeleted()
		if err != nil {
			r.log.Debug("ignoring malformed deletion event", zap.Error(err))
			return
		}
		if p.ConversationID != nil && *p.ConversationID != r.cfg.ConversationID {
			return
		}
		changed = r.cache.Remove(p.IDs...)

	case relay.KindReactionChanged:
		p, err := env.ReactionChanged()
		if err != nil {
			r.log.Debug("ignoring malformed reaction event", zap.Error(err))
			return
		}
		if p.ConversationID != nil && *p.ConversationID != r.cfg.ConversationID {
			return
		}
		changed = r.cache.Update(p.MessageID, func(m *domain.Message) {
			m.Reactions = domain.ApplyReaction(m.Reactions, p.UserID, p.Emoji, p.Action)
		})

	case relay.KindError:
		r.log.Debug("relay rejected an envelope", zap.ByteString("data", env.Data))
	}

	if changed {
		r.changed()
	}
}

// Send posts a text message, records it as pending and announces it on the
// relay. When only the announcement fails the stored message is returned
// together with the error.
func (r *Reconciler) Send(ctx context.Context, text string) (*domain.Message, error) {
	msg, err := r.api.SendMessage(ctx, r.cfg.ConversationID, text)
	if err != nil {
		return nil, err
	}
	return r.announce(ctx, msg)
}

// SendFile uploads an attachment and announces the resulting message the
// same way Send does.
func (r *Reconciler) SendFile(ctx context.Context, text, fileName string, body io.Reader) (*domain.Message, error) {
	msg, err := r.api.SendFile(ctx, r.cfg.ConversationID, text, fileName, body)
	if err != nil {
		return nil, err
	}
	return r.announce(ctx, msg)
}

func (r *Reconciler) announce(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	r.cache.AddPending(*msg)
	r.changed()

	if err := r.emit(ctx, relay.KindMessageSent, msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// ToggleReaction flips the caller's emoji reaction on messageID: locally
// first, then through the API and the relay. The API call and the relay
// emit fail independently and both errors are returned.
func (r *Reconciler) ToggleReaction(ctx context.Context, messageID uuid.UUID, emoji string) error {
	current, ok := r.cache.Get(messageID)
	if !ok {
		return fmt.Errorf("message %s is not in the conversation", messageID)
	}

	action := domain.ReactionAdd
	if domain.HasReaction(current.Reactions, r.cfg.UserID, emoji) {
		action = domain.ReactionRemove
	}

	r.cache.Update(messageID, func(m *domain.Message) {
		m.Reactions = domain.ApplyReaction(m.Reactions, r.cfg.UserID, emoji, action)
	})
	r.changed()

	var apiErr error
	if updated, err := r.api.React(ctx, messageID, emoji, action); err != nil {
		apiErr = fmt.Errorf("saving reaction: %w", err)
	} else {
		r.cache.Replace(*updated)
	}

	convID := r.cfg.ConversationID
	emitErr := r.emit(ctx, relay.KindReactionChanged, relay.ReactionChangedPayload{
		MessageID:      messageID,
		ConversationID: &convID,
		UserID:         r.cfg.UserID,
		Emoji:          emoji,
		Action:         action,
	})

	return errors.Join(apiErr, emitErr)
}

// Delete removes a message locally before the API confirms it, then deletes
// it on the server and announces the deletion.
func (r *Reconciler) Delete(ctx context.Context, messageID uuid.UUID) error {
	if r.cache.Remove(messageID) {
		r.changed()
	}

	if err := r.api.DeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return r.emitDeleted(ctx, []uuid.UUID{messageID})
}

// DeleteMany removes messages locally, announces them in one envelope and
// deletes them on the server.
func (r *Reconciler) DeleteMany(ctx context.Context, messageIDs []uuid.UUID) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if r.cache.Remove(messageIDs...) {
		r.changed()
	}

	emitErr := r.emitDeleted(ctx, messageIDs)

	var apiErr error
	if _, err := r.api.DeleteMessages(ctx, messageIDs); err != nil {
		apiErr = fmt.Errorf("deleting messages: %w", err)
	}
	return errors.Join(emitErr, apiErr)
}

// Run performs an initial pass, then reconciles every interval and applies
// relay events as they arrive, until ctx is cancelled. events may be nil.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration, events <-chan relay.Envelope) error {
	if interval <= 0 {
		return fmt.Errorf("%w, got %s", ErrInvalidInterval, interval)
	}
	if _, err := r.Pass(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			res, err := r.Pass(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.log.Warn("reconciliation pass failed", zap.Error(err))
				continue
			}
			if res.Delivered+res.Read+res.Failed > 0 {
				r.log.Debug("reconciliation pass",
					zap.Int("fetched", res.Fetched),
					zap.Int("delivered", res.Delivered),
					zap.Int("read", res.Read),
					zap.Int("failed", res.Failed),
				)
			}

		case env, ok := <-events:
			if !ok {
				r.log.Warn("relay connection closed, polling only")
				events = nil
				continue
			}
			r.HandleEnvelope(env)
		}
	}
}

func (r *Reconciler) emitDeleted(ctx context.Context, ids []uuid.UUID) error {
	convID := r.cfg.ConversationID
	return r.emit(ctx, relay.KindMessageDeleted, relay.MessageDeletedPayload{
		ConversationID: &convID,
		IDs:            ids,
	})
}

func (r *Reconciler) emit(ctx context.Context, kind relay.Kind, payload any) error {
	if r.emitter == nil {
		return nil
	}
	if err := r.emitter.Send(ctx, kind, payload); err != nil {
		return fmt.Errorf("broadcasting %s: %w", kind, err)
	}
	return nil
}

func (r *Reconciler) changed() {
	if r.cfg.OnChange != nil {
		r.cfg.OnChange(r.cache.Messages())
	}
}
