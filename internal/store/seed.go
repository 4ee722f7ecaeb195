package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bizchat/internal/domain"
)

// SentinelBusinessID gates seeding: once this business exists, the store is
// considered seeded and Seed is a no-op.
const SentinelBusinessID = "tech-store"

type seedConversation struct {
	customerName  string
	customerPhone string
	status        domain.ConversationStatus
	firstMessage  string
	at            time.Time
}

var seedBusiness = domain.Business{
	ID:      SentinelBusinessID,
	Name:    "Tech Store Support",
	LogoURL: "/logo.png",
	Status:  domain.BusinessOnline,
}

func seedConversations() []seedConversation {
	base := time.Date(2025, 8, 3, 10, 0, 0, 0, time.UTC)
	return []seedConversation{
		{"John Doe", "+1234567890", domain.ConversationActive, "Hi, my laptop is not charging properly", base.Add(30 * time.Minute)},
		{"Sarah Johnson", "+1234567891", domain.ConversationActive, "I need help with my order #12345", base.Add(25 * time.Minute)},
		{"Mike Chen", "+1234567892", domain.ConversationActive, "My gaming mouse stopped working", base.Add(20 * time.Minute)},
		{"Emma Wilson", "+1234567893", domain.ConversationResolved, "Thank you for the help!", base.Add(15 * time.Minute)},
		{"David Smith", "+1234567894", domain.ConversationActive, "Keyboard keys are sticking", base.Add(10 * time.Minute)},
	}
}

// Seed installs the demo business, conversations, and opening customer
// messages exactly once.
func (s *GormStore) Seed(ctx context.Context) error {
	_, exists, err := s.GetBusiness(ctx, SentinelBusinessID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		business := BusinessModel{
			ID:        seedBusiness.ID,
			Name:      seedBusiness.Name,
			LogoURL:   seedBusiness.LogoURL,
			Status:    string(seedBusiness.Status),
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&business).Error; err != nil {
			return err
		}
		for _, sc := range seedConversations() {
			conv := ConversationModel{
				BusinessID:    seedBusiness.ID,
				CustomerName:  sc.customerName,
				CustomerPhone: sc.customerPhone,
				Status:        string(sc.status),
				CreatedAt:     sc.at,
				UpdatedAt:     sc.at,
			}
			if err := tx.Create(&conv).Error; err != nil {
				return err
			}
			msg := MessageModel{
				ConversationID: conv.ID,
				SenderType:     string(domain.SenderCustomer),
				SenderName:     sc.customerName,
				Content:        sc.firstMessage,
				MessageType:    string(domain.MessageText),
				Status:         string(domain.StatusSent),
				CreatedAt:      sc.at,
			}
			if err := tx.Create(&msg).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapDB("seed", err)
	}
	return nil
}
