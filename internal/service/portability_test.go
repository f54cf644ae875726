package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
)

func seedAccountData(t *testing.T, env *testEnv, accountID string) {
	t.Helper()
	ctx := context.Background()

	_, err := env.conversation.Create(ctx, model.CreateConversationParams{
		AccountID: accountID,
		Title:     "gas fees",
		Messages: []model.Message{
			{Role: model.MessageRoleUser, Content: "why so high", Timestamp: time.Now()},
			{Role: model.MessageRoleAssistant, Content: "network congestion", Timestamp: time.Now()},
		},
		Tags: []string{"fees"},
	})
	require.NoError(t, err)

	_, err = env.contacts.Create(ctx, model.CreateContactParams{
		AccountID: accountID,
		Name:      "Cold Storage",
		Address:   "0x1111111111111111111111111111111111111111",
		Notes:     "hardware wallet in the safe",
	})
	require.NoError(t, err)

	_, err = env.labels.Create(ctx, model.CreateTxLabelParams{
		AccountID: accountID,
		TxHash:    "0xcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcd",
		Label:     "rent payment",
		Category:  "housing",
	})
	require.NoError(t, err)

	settings := model.DefaultSettings(accountID)
	settings.Preferences.Currency = "eur"
	require.NoError(t, env.settings.Put(ctx, &settings))

	_, err = env.snapshots.Create(ctx, model.CreateSnapshotParams{
		AccountID:  accountID,
		TotalValue: 1234.5,
		Assets:     []model.AssetBalance{{Symbol: "ETH", Amount: 0.5, Price: 2469, Value: 1234.5}},
		Network:    "mainnet",
	})
	require.NoError(t, err)

	_, err = env.tokens.Create(ctx, model.CreateTrackedTokenParams{
		AccountID: accountID,
		Address:   "0x2222222222222222222222222222222222222222",
		Symbol:    "USDC",
		Decimals:  6,
		Network:   "mainnet",
	})
	require.NoError(t, err)
}

func TestPortabilityService_ExportImport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	source := registerTestAccount(t, env, "src@x.com")
	seedAccountData(t, env, source.Account.ID)

	t.Run("export carries all six tables", func(t *testing.T) {
		doc, err := env.portability.Export(ctx, source.Account.ID)
		require.NoError(t, err)
		assert.Equal(t, ExportVersion, doc.Version)
		assert.Equal(t, source.Account.ID, doc.AccountID)
		assert.Len(t, doc.Data.Conversations, 1)
		assert.Len(t, doc.Data.Contacts, 1)
		assert.Len(t, doc.Data.TxLabels, 1)
		assert.Len(t, doc.Data.Snapshots, 1)
		assert.Len(t, doc.Data.TrackedTokens, 1)
		assert.Equal(t, "eur", doc.Data.Settings.Preferences.Currency)
	})

	t.Run("export synthesizes default settings", func(t *testing.T) {
		bare := registerTestAccount(t, env, "bare@x.com")
		doc, err := env.portability.Export(ctx, bare.Account.ID)
		require.NoError(t, err)
		assert.Equal(t, "usd", doc.Data.Settings.Preferences.Currency)
	})

	t.Run("import into a fresh account reproduces the stats", func(t *testing.T) {
		doc, err := env.portability.Export(ctx, source.Account.ID)
		require.NoError(t, err)

		target := registerTestAccount(t, env, "dst@x.com")
		result, err := env.portability.Import(ctx, target.Account.ID, doc)
		require.NoError(t, err)
		assert.Empty(t, result.Issues)

		sourceStats, err := env.portability.Stats(ctx, source.Account.ID)
		require.NoError(t, err)
		targetStats, err := env.portability.Stats(ctx, target.Account.ID)
		require.NoError(t, err)

		assert.Equal(t, sourceStats.Conversations, targetStats.Conversations)
		assert.Equal(t, sourceStats.Contacts, targetStats.Contacts)
		assert.Equal(t, sourceStats.TxLabels, targetStats.TxLabels)
		assert.Equal(t, sourceStats.Snapshots, targetStats.Snapshots)
		assert.Equal(t, sourceStats.TrackedTokens, targetStats.TrackedTokens)

		imported, err := env.settings.FindByAccount(ctx, target.Account.ID)
		require.NoError(t, err)
		require.NotNil(t, imported)
		assert.Equal(t, "eur", imported.Preferences.Currency)
	})

	t.Run("colliding records are reported, not fatal", func(t *testing.T) {
		doc, err := env.portability.Export(ctx, source.Account.ID)
		require.NoError(t, err)

		// Re-importing into the source account collides on the label and token
		// uniqueness keys but still duplicates the unconstrained tables.
		result, err := env.portability.Import(ctx, source.Account.ID, doc)
		require.NoError(t, err)
		assert.Len(t, result.Issues, 2)
		assert.Equal(t, 1, result.Imported["conversations"])
		assert.Zero(t, result.Imported["tx_labels"])
		assert.Zero(t, result.Imported["tracked_tokens"])
	})

	t.Run("invalid records are rejected and reported", func(t *testing.T) {
		target := registerTestAccount(t, env, "strict@x.com")

		doc := &ExportDocument{
			Version:   ExportVersion,
			AccountID: target.Account.ID,
			Data: ExportData{
				Conversations: []model.Conversation{
					{Title: "empty thread", Messages: nil},
					{Title: "real thread", Messages: []model.Message{
						{Role: model.MessageRoleUser, Content: "hello", Timestamp: time.Now()},
					}},
				},
				Contacts: []model.Contact{
					{Name: "Broken", Address: "not-an-address"},
				},
				Settings: model.DefaultSettings(target.Account.ID),
			},
		}

		result, err := env.portability.Import(ctx, target.Account.ID, doc)
		require.NoError(t, err)

		require.Len(t, result.Issues, 2)
		assert.Equal(t, "conversations", result.Issues[0].Table)
		assert.Equal(t, "empty thread", result.Issues[0].Record)
		assert.Equal(t, "contacts", result.Issues[1].Table)
		assert.Equal(t, 1, result.Imported["conversations"])
		assert.Zero(t, result.Imported["contacts"])

		conversations, err := env.conversation.ListByAccount(ctx, target.Account.ID, 0)
		require.NoError(t, err)
		require.Len(t, conversations, 1)
		assert.Equal(t, "real thread", conversations[0].Title)
		assert.NotEmpty(t, conversations[0].Messages)

		contacts, err := env.contacts.ListByAccount(ctx, target.Account.ID)
		require.NoError(t, err)
		assert.Empty(t, contacts)
	})

	t.Run("newer format version is rejected", func(t *testing.T) {
		doc, err := env.portability.Export(ctx, source.Account.ID)
		require.NoError(t, err)
		doc.Version = ExportVersion + 1

		_, err = env.portability.Import(ctx, source.Account.ID, doc)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
	})

	t.Run("import requires an existing target account", func(t *testing.T) {
		doc, err := env.portability.Export(ctx, source.Account.ID)
		require.NoError(t, err)

		_, err = env.portability.Import(ctx, "no-such-account", doc)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}

func TestPortabilityService_Deletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("wipe empties every dependent table but keeps the account", func(t *testing.T) {
		account := registerTestAccount(t, env, "wipe@x.com")
		seedAccountData(t, env, account.Account.ID)

		require.NoError(t, env.portability.DeleteAllAccountData(ctx, account.Account.ID))

		stats, err := env.portability.Stats(ctx, account.Account.ID)
		require.NoError(t, err)
		assert.Zero(t, stats.Conversations)
		assert.Zero(t, stats.Contacts)
		assert.Zero(t, stats.TxLabels)
		assert.Zero(t, stats.Snapshots)
		assert.Zero(t, stats.TrackedTokens)

		settings, err := env.settings.FindByAccount(ctx, account.Account.ID)
		require.NoError(t, err)
		assert.Nil(t, settings)

		still, err := env.accounts.FindByID(ctx, account.Account.ID)
		require.NoError(t, err)
		assert.NotNil(t, still)
	})

	t.Run("delete account removes sessions and the account row", func(t *testing.T) {
		account := registerTestAccount(t, env, "del@x.com")
		seedAccountData(t, env, account.Account.ID)
		_, err := env.auth.Login(ctx, "del@x.com", "Passw0rd!", "", "")
		require.NoError(t, err)

		require.NoError(t, env.portability.DeleteAccount(ctx, account.Account.ID))

		gone, err := env.accounts.FindByID(ctx, account.Account.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)

		sessions, err := env.sessions.FindByAccount(ctx, account.Account.ID)
		require.NoError(t, err)
		assert.Empty(t, sessions)

		// The email is free again.
		registerTestAccount(t, env, "del@x.com")
	})

	t.Run("deleting an unknown account is NOT_FOUND", func(t *testing.T) {
		err := env.portability.DeleteAccount(ctx, "missing")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}
