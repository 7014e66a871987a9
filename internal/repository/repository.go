package repository

import (
	"context"

	"docchat/internal/model"
)

// Lookups return (nil, nil) when the row does not exist.

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	GetByChatID(ctx context.Context, chatID string) (*model.Document, error)
	Delete(ctx context.Context, id string) error
}

type ChatStore interface {
	Create(ctx context.Context, chat *model.Chat) error
	GetByID(ctx context.Context, id string) (*model.Chat, error)
	List(ctx context.Context) ([]model.Chat, error)
	CountByDocumentID(ctx context.Context, documentID string) (int64, error)
	DeleteWithMessages(ctx context.Context, id string) error
}

type MessageStore interface {
	Append(ctx context.Context, message *model.Message) error
	ListByChatID(ctx context.Context, chatID string) ([]model.Message, error)
}

var (
	_ DocumentStore = (*DocumentRepository)(nil)
	_ ChatStore     = (*ChatRepository)(nil)
	_ MessageStore  = (*MessageRepository)(nil)
)
