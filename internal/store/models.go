package store

import (
	"time"

	"bizchat/internal/domain"
)

// GORM models used for persistence.
type BusinessModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	LogoURL   string
	Status    string    `gorm:"not null;default:online"`
	CreatedAt time.Time `gorm:"not null"`
}

func (BusinessModel) TableName() string { return "businesses" }

type ConversationModel struct {
	ID            int64  `gorm:"primaryKey"`
	BusinessID    string `gorm:"not null;index"`
	CustomerName  string `gorm:"not null"`
	CustomerPhone string
	Status        string    `gorm:"not null;default:active"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (ConversationModel) TableName() string { return "conversations" }

type MessageModel struct {
	ID             int64  `gorm:"primaryKey"`
	ConversationID int64  `gorm:"not null;index"`
	SenderType     string `gorm:"not null"`
	SenderName     string `gorm:"not null"`
	Content        string
	MessageType    string `gorm:"not null;default:text"`
	FileURL        string
	FileName       string
	Status         string    `gorm:"not null;default:sent"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

func (MessageModel) TableName() string { return "messages" }

func businessFromModel(m BusinessModel) domain.Business {
	return domain.Business{
		ID:        m.ID,
		Name:      m.Name,
		LogoURL:   m.LogoURL,
		Status:    domain.BusinessStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderType:     domain.SenderType(m.SenderType),
		SenderName:     m.SenderName,
		Content:        m.Content,
		Type:           domain.MessageType(m.MessageType),
		FileURL:        m.FileURL,
		FileName:       m.FileName,
		Status:         domain.MessageStatus(m.Status),
		CreatedAt:      m.CreatedAt,
	}
}
