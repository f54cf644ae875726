package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
)

func newVaultService(env *testEnv, encryptionKey string) *VaultService {
	return NewVaultService(
		env.conversation, env.contacts, env.labels,
		env.settings, env.snapshots, env.tokens, encryptionKey,
	)
}

func TestVaultService_Conversations(t *testing.T) {
	env := newTestEnv(t)
	vault := newVaultService(env, "")
	ctx := context.Background()

	owner := registerTestAccount(t, env, "conv@x.com").Account.ID
	intruder := registerTestAccount(t, env, "intruder@x.com").Account.ID

	conversation, err := vault.CreateConversation(ctx, model.CreateConversationParams{
		AccountID: owner,
		Title:     "swap advice",
		Messages:  []model.Message{{Role: model.MessageRoleUser, Content: "hi", Timestamp: time.Now()}},
	})
	require.NoError(t, err)

	t.Run("rejects empty messages", func(t *testing.T) {
		_, err := vault.CreateConversation(ctx, model.CreateConversationParams{
			AccountID: owner,
			Title:     "empty",
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("append keeps message order", func(t *testing.T) {
		updated, err := vault.AppendMessage(ctx, owner, conversation.ID, model.Message{
			Role: model.MessageRoleAssistant, Content: "hello", Timestamp: time.Now(),
		})
		require.NoError(t, err)
		require.Len(t, updated.Messages, 2)
		assert.Equal(t, "hi", updated.Messages[0].Content)
		assert.Equal(t, "hello", updated.Messages[1].Content)
	})

	t.Run("other accounts cannot see or modify it", func(t *testing.T) {
		_, err := vault.GetConversation(ctx, intruder, conversation.ID)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))

		err = vault.DeleteConversation(ctx, intruder, conversation.ID)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))

		still, err := vault.GetConversation(ctx, owner, conversation.ID)
		require.NoError(t, err)
		assert.NotNil(t, still)
	})
}

func TestVaultService_EncryptedContactNotes(t *testing.T) {
	env := newTestEnv(t)
	vault := newVaultService(env, "data-encryption-key")
	ctx := context.Background()

	owner := registerTestAccount(t, env, "enc@x.com").Account.ID
	addr := "0x4444444444444444444444444444444444444444"

	t.Run("notes are sealed at rest and opened on read", func(t *testing.T) {
		contact, err := vault.CreateContact(ctx, model.CreateContactParams{
			AccountID: owner,
			Name:      "Broker",
			Address:   addr,
			Notes:     "seed phrase is in the red notebook",
		})
		require.NoError(t, err)
		assert.Equal(t, "seed phrase is in the red notebook", contact.Notes)
		assert.False(t, contact.NotesEncrypted)

		// The stored form never contains the plaintext.
		stored, err := env.contacts.FindByID(ctx, contact.ID)
		require.NoError(t, err)
		assert.True(t, stored.NotesEncrypted)
		assert.NotContains(t, stored.Notes, "red notebook")
		assert.True(t, strings.HasPrefix(stored.Notes, "v1:"))

		opened, err := vault.GetContact(ctx, owner, contact.ID)
		require.NoError(t, err)
		assert.Equal(t, "seed phrase is in the red notebook", opened.Notes)
	})

	t.Run("empty notes stay plaintext", func(t *testing.T) {
		contact, err := vault.CreateContact(ctx, model.CreateContactParams{
			AccountID: owner,
			Name:      "No Notes",
			Address:   "0x5555555555555555555555555555555555555555",
		})
		require.NoError(t, err)

		stored, err := env.contacts.FindByID(ctx, contact.ID)
		require.NoError(t, err)
		assert.False(t, stored.NotesEncrypted)
		assert.Empty(t, stored.Notes)
	})

	t.Run("wrong key fails loudly", func(t *testing.T) {
		contacts, err := vault.SearchContacts(ctx, owner, "broker")
		require.NoError(t, err)
		require.Len(t, contacts, 1)

		otherVault := newVaultService(env, "some-other-key")
		_, err = otherVault.GetContact(ctx, owner, contacts[0].ID)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeCryptoFailure, apperrors.GetCode(err))
	})

	t.Run("no key means plaintext storage", func(t *testing.T) {
		plainVault := newVaultService(env, "")
		contact, err := plainVault.CreateContact(ctx, model.CreateContactParams{
			AccountID: owner,
			Name:      "Plain",
			Address:   "0x6666666666666666666666666666666666666666",
			Notes:     "nothing secret here",
		})
		require.NoError(t, err)

		stored, err := env.contacts.FindByID(ctx, contact.ID)
		require.NoError(t, err)
		assert.False(t, stored.NotesEncrypted)
		assert.Equal(t, "nothing secret here", stored.Notes)
	})
}

func TestVaultService_Labels(t *testing.T) {
	env := newTestEnv(t)
	vault := newVaultService(env, "")
	ctx := context.Background()

	owner := registerTestAccount(t, env, "lbl@x.com").Account.ID
	txHash := "0xefefefefefefefefefefefefefefefefefefefefefefefefefefefefefefefef"

	t.Run("rejects malformed tx hash", func(t *testing.T) {
		_, err := vault.CreateLabel(ctx, model.CreateTxLabelParams{
			AccountID: owner, TxHash: "0x1234", Label: "bad",
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("create and fetch by hash", func(t *testing.T) {
		_, err := vault.CreateLabel(ctx, model.CreateTxLabelParams{
			AccountID: owner, TxHash: txHash, Label: "dex swap", Category: "trading",
		})
		require.NoError(t, err)

		label, err := vault.GetLabelByTxHash(ctx, owner, txHash)
		require.NoError(t, err)
		assert.Equal(t, "dex swap", label.Label)
	})

	t.Run("missing label is NOT_FOUND", func(t *testing.T) {
		other := "0x0101010101010101010101010101010101010101010101010101010101010101"
		_, err := vault.GetLabelByTxHash(ctx, owner, other)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}

func TestVaultService_Settings(t *testing.T) {
	env := newTestEnv(t)
	vault := newVaultService(env, "")
	ctx := context.Background()

	owner := registerTestAccount(t, env, "cfg@x.com").Account.ID

	t.Run("defaults before first write", func(t *testing.T) {
		settings, err := vault.GetSettings(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, "usd", settings.Preferences.Currency)
		assert.Equal(t, model.ThemeSystem, settings.Preferences.Theme)
	})

	t.Run("rejects unsupported currency", func(t *testing.T) {
		settings := model.DefaultSettings(owner)
		settings.Preferences.Currency = "doubloons"
		_, err := vault.UpdateSettings(ctx, owner, &settings)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("update persists", func(t *testing.T) {
		settings := model.DefaultSettings(owner)
		settings.Preferences.Theme = model.ThemeDark
		_, err := vault.UpdateSettings(ctx, owner, &settings)
		require.NoError(t, err)

		stored, err := vault.GetSettings(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, model.ThemeDark, stored.Preferences.Theme)
	})
}

func TestVaultService_Tokens(t *testing.T) {
	env := newTestEnv(t)
	vault := newVaultService(env, "")
	ctx := context.Background()

	owner := registerTestAccount(t, env, "tok@x.com").Account.ID
	intruder := registerTestAccount(t, env, "tok2@x.com").Account.ID

	token, err := vault.TrackToken(ctx, model.CreateTrackedTokenParams{
		AccountID: owner,
		Address:   "0x7777777777777777777777777777777777777777",
		Symbol:    "WETH",
		Decimals:  18,
		Network:   "mainnet",
	})
	require.NoError(t, err)

	t.Run("rejects out-of-range decimals", func(t *testing.T) {
		_, err := vault.TrackToken(ctx, model.CreateTrackedTokenParams{
			AccountID: owner,
			Address:   "0x8888888888888888888888888888888888888888",
			Symbol:    "BAD",
			Decimals:  99,
			Network:   "mainnet",
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("untrack is owner-scoped", func(t *testing.T) {
		err := vault.UntrackToken(ctx, intruder, token.ID)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))

		require.NoError(t, vault.UntrackToken(ctx, owner, token.ID))
	})
}
