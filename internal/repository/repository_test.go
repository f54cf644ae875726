package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/store"
	"github.com/heliawallet/vault-server-go/internal/util"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	h := store.NewHandle(filepath.Join(t.TempDir(), "vault.db"))
	st, err := h.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return st
}

func createTestAccount(t *testing.T, repo AccountRepository, email string) *model.Account {
	t.Helper()
	hash, err := util.HashPassword("Passw0rd!")
	require.NoError(t, err)
	account, err := repo.Create(context.Background(), model.CreateAccountParams{
		Email:                 email,
		Name:                  "Test User",
		PasswordHash:          hash,
		VerificationTokenHash: util.HashToken("verify-token"),
		VerificationExpiresAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return account
}

func TestAccountRepository(t *testing.T) {
	st := setupTestStore(t)
	repo := NewAccountRepository(st)
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		account := createTestAccount(t, repo, "a@x.com")
		assert.Equal(t, model.RoleUser, account.Role)
		assert.True(t, account.IsActive)
		assert.False(t, account.EmailVerified)

		found, err := repo.FindByID(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "a@x.com", found.Email)

		byEmail, err := repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, account.ID, byEmail.ID)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		hash, _ := util.HashPassword("Passw0rd!")
		_, err := repo.Create(ctx, model.CreateAccountParams{Email: "a@x.com", PasswordHash: hash})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeAlreadyExists, apperrors.GetCode(err))
	})

	t.Run("wallet uniqueness across accounts", func(t *testing.T) {
		first, err := repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		second := createTestAccount(t, repo, "b@x.com")

		addr := "0x1234567890abcdef1234567890abcdef12345678"
		first.WalletAddress = &addr
		require.NoError(t, repo.Update(ctx, first))

		second.WalletAddress = &addr
		err = repo.Update(ctx, second)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))

		byWallet, err := repo.FindByWallet(ctx, addr)
		require.NoError(t, err)
		require.NotNil(t, byWallet)
		assert.Equal(t, first.ID, byWallet.ID)
	})

	t.Run("find by verification token hash", func(t *testing.T) {
		found, err := repo.FindByVerificationTokenHash(ctx, util.HashToken("verify-token"))
		require.NoError(t, err)
		require.NotNil(t, found)

		missing, err := repo.FindByVerificationTokenHash(ctx, util.HashToken("wrong-token"))
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("delete releases email", func(t *testing.T) {
		account := createTestAccount(t, repo, "gone@x.com")
		require.NoError(t, repo.Delete(ctx, account.ID))

		found, err := repo.FindByEmail(ctx, "gone@x.com")
		require.NoError(t, err)
		assert.Nil(t, found)

		// Email is free for a new registration.
		createTestAccount(t, repo, "gone@x.com")
	})
}

func TestSessionRepository(t *testing.T) {
	st := setupTestStore(t)
	accounts := NewAccountRepository(st)
	repo := NewSessionRepository(st)
	ctx := context.Background()

	account := createTestAccount(t, accounts, "s@x.com")

	newParams := func(access, refresh string) model.CreateSessionParams {
		return model.CreateSessionParams{
			AccountID:        account.ID,
			AccessTokenHash:  util.HashToken(access),
			RefreshTokenHash: util.HashToken(refresh),
			ClientIP:         "127.0.0.1",
			UserAgent:        "test-agent",
			ExpiresAt:        time.Now().Add(7 * 24 * time.Hour),
		}
	}

	t.Run("create and find by account", func(t *testing.T) {
		s1, err := repo.Create(ctx, newParams("a1", "r1"))
		require.NoError(t, err)
		assert.True(t, s1.IsActive)

		_, err = repo.Create(ctx, newParams("a2", "r2"))
		require.NoError(t, err)

		sessions, err := repo.FindByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Len(t, sessions, 2)
	})

	t.Run("rejects expiry not after creation", func(t *testing.T) {
		params := newParams("a3", "r3")
		params.ExpiresAt = time.Now().Add(-time.Second)
		_, err := repo.Create(ctx, params)
		require.Error(t, err)
	})

	t.Run("find by refresh hash and rotate", func(t *testing.T) {
		session, err := repo.FindByRefreshHash(ctx, util.HashToken("r1"))
		require.NoError(t, err)
		require.NotNil(t, session)

		session.RefreshTokenHash = util.HashToken("r1-rotated")
		require.NoError(t, repo.Update(ctx, session))

		stale, err := repo.FindByRefreshHash(ctx, util.HashToken("r1"))
		require.NoError(t, err)
		assert.Nil(t, stale)

		rotated, err := repo.FindByRefreshHash(ctx, util.HashToken("r1-rotated"))
		require.NoError(t, err)
		require.NotNil(t, rotated)
		assert.Equal(t, session.ID, rotated.ID)
	})

	t.Run("deactivate all keeps rows", func(t *testing.T) {
		flipped, err := repo.DeactivateAll(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, flipped)

		sessions, err := repo.FindByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Len(t, sessions, 2)
		for _, s := range sessions {
			assert.False(t, s.IsActive)
		}
	})

	t.Run("delete expired removes only past-horizon rows", func(t *testing.T) {
		// One session expiring almost immediately.
		params := newParams("a4", "r4")
		params.ExpiresAt = time.Now().Add(10 * time.Millisecond)
		_, err := repo.Create(ctx, params)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)
		deleted, err := repo.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, deleted)

		sessions, err := repo.FindByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Len(t, sessions, 2)
	})
}

func TestConversationRepository(t *testing.T) {
	st := setupTestStore(t)
	accounts := NewAccountRepository(st)
	repo := NewConversationRepository(st)
	ctx := context.Background()

	account := createTestAccount(t, accounts, "c@x.com")

	msg := func(content string) model.Message {
		return model.Message{Role: model.MessageRoleUser, Content: content, Timestamp: time.Now()}
	}

	t.Run("list newest first", func(t *testing.T) {
		first, err := repo.Create(ctx, model.CreateConversationParams{
			AccountID: account.ID, Title: "first", Messages: []model.Message{msg("one")},
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		_, err = repo.Create(ctx, model.CreateConversationParams{
			AccountID: account.ID, Title: "second", Messages: []model.Message{msg("two")},
		})
		require.NoError(t, err)

		list, err := repo.ListByAccount(ctx, account.ID, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "second", list[0].Title)

		// Appending to the older conversation moves it to the front.
		time.Sleep(2 * time.Millisecond)
		first.Messages = append(first.Messages, msg("three"))
		require.NoError(t, repo.Update(ctx, first))

		list, err = repo.ListByAccount(ctx, account.ID, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "first", list[0].Title)
	})

	t.Run("limit slices from the newest", func(t *testing.T) {
		list, err := repo.ListByAccount(ctx, account.ID, 1)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "first", list[0].Title)
	})

	t.Run("delete by account", func(t *testing.T) {
		deleted, err := repo.DeleteByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, deleted)

		count, err := repo.CountByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestContactRepository(t *testing.T) {
	st := setupTestStore(t)
	accounts := NewAccountRepository(st)
	repo := NewContactRepository(st)
	ctx := context.Background()

	account := createTestAccount(t, accounts, "ct@x.com")
	other := createTestAccount(t, accounts, "other@x.com")

	addr1 := "0x1111111111111111111111111111111111111111"
	addr2 := "0x2222222222222222222222222222222222222222"

	_, err := repo.Create(ctx, model.CreateContactParams{AccountID: account.ID, Name: "Alice Exchange", Address: addr1})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.CreateContactParams{AccountID: account.ID, Name: "alfred cold storage", Address: addr2})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.CreateContactParams{AccountID: other.ID, Name: "Alice Exchange", Address: addr1})
	require.NoError(t, err)

	t.Run("name search is case-insensitive and owner-scoped", func(t *testing.T) {
		found, err := repo.SearchByName(ctx, account.ID, "al")
		require.NoError(t, err)
		assert.Len(t, found, 2)

		found, err = repo.SearchByName(ctx, account.ID, "ALICE")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Alice Exchange", found[0].Name)
	})

	t.Run("address lookup is owner-scoped", func(t *testing.T) {
		found, err := repo.FindByAddress(ctx, account.ID, addr1)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, account.ID, found[0].AccountID)
	})

	t.Run("update reindexes name", func(t *testing.T) {
		found, err := repo.SearchByName(ctx, account.ID, "alfred")
		require.NoError(t, err)
		require.Len(t, found, 1)

		contact := found[0]
		contact.Name = "Basil"
		require.NoError(t, repo.Update(ctx, &contact))

		found, err = repo.SearchByName(ctx, account.ID, "alfred")
		require.NoError(t, err)
		assert.Empty(t, found)

		found, err = repo.SearchByName(ctx, account.ID, "basil")
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})
}

func TestTxLabelRepository(t *testing.T) {
	st := setupTestStore(t)
	accounts := NewAccountRepository(st)
	repo := NewTxLabelRepository(st)
	ctx := context.Background()

	account := createTestAccount(t, accounts, "l@x.com")
	txHash := "0xabababababababababababababababababababababababababababababababab"

	t.Run("one label per transaction", func(t *testing.T) {
		_, err := repo.Create(ctx, model.CreateTxLabelParams{AccountID: account.ID, TxHash: txHash, Label: "rent"})
		require.NoError(t, err)

		_, err = repo.Create(ctx, model.CreateTxLabelParams{AccountID: account.ID, TxHash: txHash, Label: "other"})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
	})

	t.Run("lookup by tx hash is case-insensitive", func(t *testing.T) {
		label, err := repo.FindByTxHash(ctx, account.ID, "0xABABABABABABABABABABABABABABABABABABABABABABABABABABABABABABABAB")
		require.NoError(t, err)
		require.NotNil(t, label)
		assert.Equal(t, "rent", label.Label)
	})

	t.Run("other accounts can label the same transaction", func(t *testing.T) {
		other := createTestAccount(t, accounts, "l2@x.com")
		_, err := repo.Create(ctx, model.CreateTxLabelParams{AccountID: other.ID, TxHash: txHash, Label: "salary"})
		assert.NoError(t, err)
	})
}

func TestSettingsRepository(t *testing.T) {
	st := setupTestStore(t)
	accounts := NewAccountRepository(st)
	repo := NewSettingsRepository(st)
	ctx := context.Background()

	account := createTestAccount(t, accounts, "set@x.com")

	t.Run("upsert keeps one record reflecting the latest write", func(t *testing.T) {
		settings := model.DefaultSettings(account.ID)
		settings.Preferences.Theme = model.ThemeDark
		require.NoError(t, repo.Put(ctx, &settings))

		settings.Preferences.Theme = model.ThemeLight
		settings.Preferences.Currency = "eur"
		require.NoError(t, repo.Put(ctx, &settings))

		stored, err := repo.FindByAccount(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, model.ThemeLight, stored.Preferences.Theme)
		assert.Equal(t, "eur", stored.Preferences.Currency)
	})

	t.Run("missing settings yields nil", func(t *testing.T) {
		stored, err := repo.FindByAccount(ctx, "no-such-account")
		require.NoError(t, err)
		assert.Nil(t, stored)
	})
}

func TestSnapshotRepository(t *testing.T) {
	st := setupTestStore(t)
	accounts := NewAccountRepository(st)
	repo := NewSnapshotRepository(st)
	ctx := context.Background()

	account := createTestAccount(t, accounts, "snap@x.com")
	now := time.Now()

	makeSnapshot := func(age time.Duration) {
		_, err := repo.Create(ctx, model.CreateSnapshotParams{
			AccountID:  account.ID,
			CapturedAt: now.Add(-age),
			TotalValue: 100,
			Assets:     []model.AssetBalance{{Symbol: "ETH", Amount: 1, Price: 100, Value: 100}},
			Network:    "mainnet",
		})
		require.NoError(t, err)
	}

	makeSnapshot(24 * time.Hour)       // 1 day
	makeSnapshot(40 * 24 * time.Hour)  // 40 days
	makeSnapshot(120 * 24 * time.Hour) // 120 days

	t.Run("range query ascending and descending", func(t *testing.T) {
		all, err := repo.ListByAccount(ctx, account.ID, time.Time{}, time.Time{}, false, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.True(t, all[0].CapturedAt.Before(all[1].CapturedAt))

		newest, err := repo.ListByAccount(ctx, account.ID, time.Time{}, time.Time{}, true, 1)
		require.NoError(t, err)
		require.Len(t, newest, 1)
		assert.WithinDuration(t, now.Add(-24*time.Hour), newest[0].CapturedAt, time.Second)
	})

	t.Run("bounded range keeps leading key exact", func(t *testing.T) {
		mid, err := repo.ListByAccount(ctx, account.ID, now.Add(-60*24*time.Hour), now.Add(-10*24*time.Hour), false, 0)
		require.NoError(t, err)
		require.Len(t, mid, 1)
		assert.WithinDuration(t, now.Add(-40*24*time.Hour), mid[0].CapturedAt, time.Second)
	})

	t.Run("retention sweep removes only stale rows", func(t *testing.T) {
		deleted, err := repo.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 1, deleted)

		count, err := repo.CountByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestTrackedTokenRepository(t *testing.T) {
	st := setupTestStore(t)
	accounts := NewAccountRepository(st)
	repo := NewTrackedTokenRepository(st)
	ctx := context.Background()

	account := createTestAccount(t, accounts, "tok@x.com")
	addr := "0x3333333333333333333333333333333333333333"

	t.Run("duplicate contract per network conflicts", func(t *testing.T) {
		_, err := repo.Create(ctx, model.CreateTrackedTokenParams{
			AccountID: account.ID, Address: addr, Symbol: "USDC", Decimals: 6, Network: "mainnet",
		})
		require.NoError(t, err)

		_, err = repo.Create(ctx, model.CreateTrackedTokenParams{
			AccountID: account.ID, Address: addr, Symbol: "USDC", Decimals: 6, Network: "mainnet",
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))

		// Same contract on a different network is a separate row.
		_, err = repo.Create(ctx, model.CreateTrackedTokenParams{
			AccountID: account.ID, Address: addr, Symbol: "USDC", Decimals: 6, Network: "base",
		})
		assert.NoError(t, err)
	})

	t.Run("delete releases the contract key", func(t *testing.T) {
		tokens, err := repo.ListByAccount(ctx, account.ID)
		require.NoError(t, err)
		require.Len(t, tokens, 2)

		require.NoError(t, repo.Delete(ctx, tokens[0].ID))
		require.NoError(t, repo.Delete(ctx, tokens[1].ID))

		count, err := repo.CountByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Zero(t, count)

		_, err = repo.Create(ctx, model.CreateTrackedTokenParams{
			AccountID: account.ID, Address: addr, Symbol: "USDC", Decimals: 6, Network: "mainnet",
		})
		assert.NoError(t, err)
	})
}
