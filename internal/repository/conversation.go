package repository

import (
	"context"
	"math"
	"time"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/store"
	"github.com/heliawallet/vault-server-go/internal/util"
)

type ConversationRepository interface {
	Create(ctx context.Context, params model.CreateConversationParams) (*model.Conversation, error)
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	// ListByAccount returns conversations newest-first by update time.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]model.Conversation, error)
	Update(ctx context.Context, conversation *model.Conversation) error
	Delete(ctx context.Context, id string) error
	DeleteByAccount(ctx context.Context, accountID string) (int, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)
	WithTx(tx *store.Tx) ConversationRepository
}

type conversationRepo struct {
	runner
}

func NewConversationRepository(st *store.Store) ConversationRepository {
	return &conversationRepo{runner{st: st}}
}

func (r *conversationRepo) WithTx(tx *store.Tx) ConversationRepository {
	return &conversationRepo{runner{tx: tx}}
}

func (r *conversationRepo) Create(ctx context.Context, params model.CreateConversationParams) (*model.Conversation, error) {
	now := time.Now()
	conversation := &model.Conversation{
		ID:        util.NewID(),
		AccountID: params.AccountID,
		Title:     params.Title,
		Messages:  params.Messages,
		Tags:      params.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.update(func(tx *store.Tx) error {
		key := string(store.CompoundKey(conversation.AccountID, conversation.UpdatedAt.UnixMilli()))
		if err := tx.AddIndex(store.TableConversations, store.IndexConversationUpdated, key, conversation.ID); err != nil {
			return err
		}
		return insertRecord(tx, store.TableConversations, conversation.ID, conversation)
	})
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

func (r *conversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conversation *model.Conversation
	err := r.view(func(tx *store.Tx) error {
		var err error
		conversation, err = getRecord[model.Conversation](tx, store.TableConversations, id)
		return err
	})
	return conversation, err
}

func (r *conversationRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]model.Conversation, error) {
	var conversations []model.Conversation
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanRange(store.TableConversations, store.IndexConversationUpdated,
			accountID, 0, math.MaxInt64, true, limit)
		if err != nil {
			return err
		}
		conversations, err = fetchAll[model.Conversation](tx, store.TableConversations, ids)
		return err
	})
	return conversations, err
}

// Update persists the conversation and moves its position in the
// account+updatedAt index.
func (r *conversationRepo) Update(ctx context.Context, conversation *model.Conversation) error {
	return r.update(func(tx *store.Tx) error {
		old, err := getRecord[model.Conversation](tx, store.TableConversations, conversation.ID)
		if err != nil {
			return err
		}
		if old == nil {
			return apperrors.NotFound("Conversation")
		}

		oldKey := string(store.CompoundKey(old.AccountID, old.UpdatedAt.UnixMilli()))
		if err := tx.RemoveIndex(store.TableConversations, store.IndexConversationUpdated, oldKey, conversation.ID); err != nil {
			return err
		}
		conversation.UpdatedAt = time.Now()
		newKey := string(store.CompoundKey(conversation.AccountID, conversation.UpdatedAt.UnixMilli()))
		if err := tx.AddIndex(store.TableConversations, store.IndexConversationUpdated, newKey, conversation.ID); err != nil {
			return err
		}
		return putRecord(tx, store.TableConversations, conversation.ID, conversation)
	})
}

func (r *conversationRepo) Delete(ctx context.Context, id string) error {
	return r.update(func(tx *store.Tx) error {
		conversation, err := getRecord[model.Conversation](tx, store.TableConversations, id)
		if err != nil {
			return err
		}
		if conversation == nil {
			return nil
		}
		key := string(store.CompoundKey(conversation.AccountID, conversation.UpdatedAt.UnixMilli()))
		if err := tx.RemoveIndex(store.TableConversations, store.IndexConversationUpdated, key, id); err != nil {
			return err
		}
		return tx.Delete(store.TableConversations, id)
	})
}

func (r *conversationRepo) DeleteByAccount(ctx context.Context, accountID string) (int, error) {
	count := 0
	err := r.update(func(tx *store.Tx) error {
		ids, err := tx.ScanIndexPrefix(store.TableConversations, store.IndexConversationUpdated, store.IndexKey(accountID, ""))
		if err != nil {
			return err
		}
		if err := tx.DeleteIndexByOwner(store.TableConversations, store.IndexConversationUpdated, accountID); err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.Delete(store.TableConversations, id); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (r *conversationRepo) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanIndexPrefix(store.TableConversations, store.IndexConversationUpdated, store.IndexKey(accountID, ""))
		if err != nil {
			return err
		}
		count = len(ids)
		return nil
	})
	return count, err
}
