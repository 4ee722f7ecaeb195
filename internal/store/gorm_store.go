package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"bizchat/internal/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations. Migration is
// create-if-absent and safe to run on every startup.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&BusinessModel{}, &ConversationModel{}, &MessageModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// GetBusiness looks up a business by its slug id.
func (s *GormStore) GetBusiness(ctx context.Context, id string) (domain.Business, bool, error) {
	var model BusinessModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Business{}, false, nil
		}
		return domain.Business{}, false, wrapDB("get business", err)
	}
	return businessFromModel(model), true, nil
}

// UpdateBusinessStatus sets the presence status, reporting whether a row changed.
func (s *GormStore) UpdateBusinessStatus(ctx context.Context, id string, status domain.BusinessStatus) (bool, error) {
	tx := s.db.WithContext(ctx).Model(&BusinessModel{}).
		Where("id = ?", id).
		Update("status", string(status))
	if tx.Error != nil {
		return false, wrapDB("update business status", tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// BusinessStats aggregates conversation and message counters in one query.
func (s *GormStore) BusinessStats(ctx context.Context, businessID string) (domain.BusinessStats, error) {
	var row struct {
		TotalConversations    int
		ActiveConversations   int
		ResolvedConversations int
		TotalMessages         int
		CustomerMessages      int
		BusinessMessages      int
	}
	err := s.db.WithContext(ctx).Raw(`
SELECT
  (SELECT COUNT(*) FROM conversations WHERE business_id = @id) AS total_conversations,
  (SELECT COUNT(*) FROM conversations WHERE business_id = @id AND status = 'active') AS active_conversations,
  (SELECT COUNT(*) FROM conversations WHERE business_id = @id AND status = 'resolved') AS resolved_conversations,
  (SELECT COUNT(*) FROM messages m JOIN conversations c ON c.id = m.conversation_id
    WHERE c.business_id = @id) AS total_messages,
  (SELECT COUNT(*) FROM messages m JOIN conversations c ON c.id = m.conversation_id
    WHERE c.business_id = @id AND m.sender_type = 'customer') AS customer_messages,
  (SELECT COUNT(*) FROM messages m JOIN conversations c ON c.id = m.conversation_id
    WHERE c.business_id = @id AND m.sender_type = 'business') AS business_messages
`, sql.Named("id", businessID)).Scan(&row).Error
	if err != nil {
		return domain.BusinessStats{}, wrapDB("business stats", err)
	}
	stats := domain.BusinessStats{
		TotalConversations:    row.TotalConversations,
		ActiveConversations:   row.ActiveConversations,
		ResolvedConversations: row.ResolvedConversations,
		TotalMessages:         row.TotalMessages,
		CustomerMessages:      row.CustomerMessages,
		BusinessMessages:      row.BusinessMessages,
	}
	stats.FillDerived()
	return stats, nil
}

// conversationRow carries a conversation plus its join-computed fields.
type conversationRow struct {
	ID            int64
	BusinessID    string
	CustomerName  string
	CustomerPhone string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastMessage   sql.NullString
	LastMessageAt sql.NullTime
	UnreadCount   int
}

// Last-message text, time, and unread count are computed at read time via a
// lateral join. Nothing is denormalized onto the conversation row.
const conversationSelect = `
SELECT c.id, c.business_id, c.customer_name, c.customer_phone, c.status,
       c.created_at, c.updated_at,
       lm.content AS last_message, lm.created_at AS last_message_at,
       (SELECT COUNT(*) FROM messages m
         WHERE m.conversation_id = c.id
           AND m.sender_type = 'customer'
           AND m.status <> 'read') AS unread_count
FROM conversations c
LEFT JOIN LATERAL (
  SELECT m.id, m.content, m.created_at FROM messages m
  WHERE m.conversation_id = c.id
  ORDER BY m.created_at DESC, m.id DESC
  LIMIT 1
) lm ON true
`

const conversationOrder = `
ORDER BY COALESCE(lm.created_at, c.created_at) DESC, lm.id DESC NULLS LAST, c.id DESC
`

// ListConversations returns a business's conversations by most recent activity.
func (s *GormStore) ListConversations(ctx context.Context, businessID string) ([]domain.Conversation, error) {
	return s.listConversations(ctx, conversationSelect+`WHERE c.business_id = ?`+conversationOrder, businessID)
}

// SearchConversations filters by case-insensitive customer-name substring.
func (s *GormStore) SearchConversations(ctx context.Context, businessID, term string) ([]domain.Conversation, error) {
	return s.listConversations(ctx,
		conversationSelect+`WHERE c.business_id = ? AND c.customer_name ILIKE ?`+conversationOrder,
		businessID, "%"+term+"%")
}

func (s *GormStore) listConversations(ctx context.Context, query string, args ...any) ([]domain.Conversation, error) {
	var rows []conversationRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, wrapDB("list conversations", err)
	}
	res := make([]domain.Conversation, 0, len(rows))
	for _, row := range rows {
		res = append(res, conversationFromRow(row))
	}
	return res, nil
}

// GetConversation retrieves one conversation with derived fields.
func (s *GormStore) GetConversation(ctx context.Context, id int64) (domain.Conversation, bool, error) {
	var rows []conversationRow
	err := s.db.WithContext(ctx).Raw(conversationSelect+`WHERE c.id = ?`, id).Scan(&rows).Error
	if err != nil {
		return domain.Conversation{}, false, wrapDB("get conversation", err)
	}
	if len(rows) == 0 {
		return domain.Conversation{}, false, nil
	}
	return conversationFromRow(rows[0]), true, nil
}

// UpdateConversationStatus sets the lifecycle status, reporting whether a row changed.
func (s *GormStore) UpdateConversationStatus(ctx context.Context, id int64, status domain.ConversationStatus) (bool, error) {
	tx := s.db.WithContext(ctx).Model(&ConversationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return false, wrapDB("update conversation status", tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// TouchConversation bumps updated_at after message activity.
func (s *GormStore) TouchConversation(ctx context.Context, id int64) error {
	tx := s.db.WithContext(ctx).Model(&ConversationModel{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC())
	if tx.Error != nil {
		return wrapDB("touch conversation", tx.Error)
	}
	return nil
}

// ListMessages returns the most recent limit rows after skipping offset,
// ascending by time.
func (s *GormStore) ListMessages(ctx context.Context, conversationID int64, limit, offset int) ([]domain.Message, error) {
	var models []MessageModel
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, wrapDB("list messages", err)
	}
	// Reverse into chronological order.
	res := make([]domain.Message, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		res = append(res, messageFromModel(models[i]))
	}
	return res, nil
}

// CreateMessage validates input, checks the conversation exists, and inserts.
func (s *GormStore) CreateMessage(ctx context.Context, params NewMessage) (domain.Message, error) {
	if err := params.Validate(); err != nil {
		return domain.Message{}, err
	}
	var created MessageModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ConversationModel{}).Where("id = ?", params.ConversationID).Count(&count).Error; err != nil {
			return wrapDB("check conversation", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		created = MessageModel{
			ConversationID: params.ConversationID,
			SenderType:     string(params.SenderType),
			SenderName:     params.SenderName,
			Content:        params.Content,
			MessageType:    string(params.Type),
			FileURL:        params.FileURL,
			FileName:       params.FileName,
			Status:         string(domain.StatusSent),
			CreatedAt:      time.Now().UTC(),
		}
		if err := tx.Create(&created).Error; err != nil {
			return wrapDB("create message", err)
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return messageFromModel(created), nil
}

// UpdateMessageStatus applies a forward-only delivery-state transition.
func (s *GormStore) UpdateMessageStatus(ctx context.Context, id int64, status domain.MessageStatus) (bool, error) {
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model MessageModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return wrapDB("get message", err)
		}
		if !domain.MessageStatus(model.Status).CanTransitionTo(status) {
			return nil
		}
		if err := tx.Model(&MessageModel{}).Where("id = ?", id).
			Update("status", string(status)).Error; err != nil {
			return wrapDB("update message status", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func conversationFromRow(row conversationRow) domain.Conversation {
	conv := domain.Conversation{
		ID:            row.ID,
		BusinessID:    row.BusinessID,
		CustomerName:  row.CustomerName,
		CustomerPhone: row.CustomerPhone,
		Status:        domain.ConversationStatus(row.Status),
		UnreadCount:   row.UnreadCount,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.LastMessage.Valid {
		conv.LastMessage = row.LastMessage.String
	}
	if row.LastMessageAt.Valid {
		at := row.LastMessageAt.Time
		conv.LastMessageAt = &at
	}
	return conv
}
