package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/repository"
	"github.com/heliawallet/vault-server-go/internal/store"
	"github.com/heliawallet/vault-server-go/internal/validate"
)

// ExportVersion is the format version stamped into export documents. Import
// rejects documents written by a newer format.
const ExportVersion = 1

// ExportDocument is the self-contained portable form of one account's data.
// It never includes credentials, sessions, or token material.
type ExportDocument struct {
	Version    int        `json:"version"`
	ExportedAt time.Time  `json:"exportedAt"`
	AccountID  string     `json:"accountId"`
	Data       ExportData `json:"data"`
}

type ExportData struct {
	Conversations []model.Conversation `json:"conversations"`
	Contacts      []model.Contact      `json:"contacts"`
	TxLabels      []model.TxLabel      `json:"txLabels"`
	Settings      model.Settings       `json:"settings"`
	Snapshots     []model.Snapshot     `json:"snapshots"`
	TrackedTokens []model.TrackedToken `json:"trackedTokens"`
}

// ImportIssue records one record that could not be imported. The rest of the
// document is unaffected.
type ImportIssue struct {
	Table  string `json:"table"`
	Record string `json:"record"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Imported map[string]int `json:"imported"`
	Issues   []ImportIssue  `json:"issues,omitempty"`
}

// AccountStats reports per-table record counts for one account.
type AccountStats struct {
	Conversations int `json:"conversations"`
	Contacts      int `json:"contacts"`
	TxLabels      int `json:"txLabels"`
	Snapshots     int `json:"snapshots"`
	TrackedTokens int `json:"trackedTokens"`
	Sessions      int `json:"sessions"`
}

// PortabilityService implements export, import, per-account data wipe, and
// account deletion. Destructive operations run as a single transaction.
type PortabilityService struct {
	st *store.Store

	accountRepo      repository.AccountRepository
	sessionRepo      repository.SessionRepository
	conversationRepo repository.ConversationRepository
	contactRepo      repository.ContactRepository
	labelRepo        repository.TxLabelRepository
	settingsRepo     repository.SettingsRepository
	snapshotRepo     repository.SnapshotRepository
	tokenRepo        repository.TrackedTokenRepository
}

func NewPortabilityService(
	st *store.Store,
	accountRepo repository.AccountRepository,
	sessionRepo repository.SessionRepository,
	conversationRepo repository.ConversationRepository,
	contactRepo repository.ContactRepository,
	labelRepo repository.TxLabelRepository,
	settingsRepo repository.SettingsRepository,
	snapshotRepo repository.SnapshotRepository,
	tokenRepo repository.TrackedTokenRepository,
) *PortabilityService {
	return &PortabilityService{
		st:               st,
		accountRepo:      accountRepo,
		sessionRepo:      sessionRepo,
		conversationRepo: conversationRepo,
		contactRepo:      contactRepo,
		labelRepo:        labelRepo,
		settingsRepo:     settingsRepo,
		snapshotRepo:     snapshotRepo,
		tokenRepo:        tokenRepo,
	}
}

// Export assembles the account's full portable document. Missing settings are
// synthesized from defaults so the document is always complete.
func (s *PortabilityService) Export(ctx context.Context, accountID string) (*ExportDocument, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.NotFound("Account")
	}

	conversations, err := s.conversationRepo.ListByAccount(ctx, accountID, 0)
	if err != nil {
		return nil, err
	}
	contacts, err := s.contactRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	labels, err := s.labelRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	settings, err := s.settingsRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		defaults := model.DefaultSettings(accountID)
		settings = &defaults
	}
	snapshots, err := s.snapshotRepo.ListByAccount(ctx, accountID, time.Time{}, time.Time{}, false, 0)
	if err != nil {
		return nil, err
	}
	tokens, err := s.tokenRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &ExportDocument{
		Version:    ExportVersion,
		ExportedAt: time.Now(),
		AccountID:  accountID,
		Data: ExportData{
			Conversations: conversations,
			Contacts:      contacts,
			TxLabels:      labels,
			Settings:      *settings,
			Snapshots:     snapshots,
			TrackedTokens: tokens,
		},
	}, nil
}

// Import replays an export document into the target account. Every record is
// re-validated against the entity schemas before it touches storage; a record
// that fails validation or collides with existing data is skipped and
// reported, it never aborts the rest. Records are recreated with fresh
// identifiers. Settings are upserted.
func (s *PortabilityService) Import(ctx context.Context, accountID string, doc *ExportDocument) (*ImportResult, error) {
	if doc == nil {
		return nil, apperrors.MissingRequired("document")
	}
	if doc.Version > ExportVersion || doc.Version < 1 {
		return nil, apperrors.InvalidInput("version", fmt.Sprintf("unsupported export version %d", doc.Version))
	}

	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.NotFound("Account")
	}

	result := &ImportResult{Imported: map[string]int{}}
	report := func(table, record string, err error) {
		reason := err.Error()
		if appErr, ok := apperrors.AsAppError(err); ok {
			reason = appErr.Message
		}
		result.Issues = append(result.Issues, ImportIssue{Table: table, Record: record, Reason: reason})
	}

	for i := range doc.Data.Conversations {
		c := &doc.Data.Conversations[i]
		candidate := model.Conversation{
			AccountID: accountID,
			Title:     c.Title,
			Messages:  c.Messages,
			Tags:      c.Tags,
		}
		if err := validate.Conversation(&candidate); err != nil {
			report(store.TableConversations, c.Title, err)
			continue
		}
		_, err := s.conversationRepo.Create(ctx, model.CreateConversationParams{
			AccountID: accountID,
			Title:     c.Title,
			Messages:  c.Messages,
			Tags:      c.Tags,
		})
		if err != nil {
			report(store.TableConversations, c.Title, err)
			continue
		}
		result.Imported[store.TableConversations]++
	}

	for i := range doc.Data.Contacts {
		c := &doc.Data.Contacts[i]
		candidate := model.Contact{
			AccountID: accountID,
			Name:      c.Name,
			Address:   validate.NormalizeAddress(c.Address),
			Alias:     c.Alias,
			Tags:      c.Tags,
		}
		// Sealed notes are ciphertext; the plaintext length rule only
		// applies when notes travel in the clear.
		if !c.NotesEncrypted {
			candidate.Notes = c.Notes
		}
		if err := validate.Contact(&candidate); err != nil {
			report(store.TableContacts, c.Name, err)
			continue
		}
		_, err := s.contactRepo.Create(ctx, model.CreateContactParams{
			AccountID:      accountID,
			Name:           c.Name,
			Address:        candidate.Address,
			Alias:          c.Alias,
			Tags:           c.Tags,
			Notes:          c.Notes,
			NotesEncrypted: c.NotesEncrypted,
		})
		if err != nil {
			report(store.TableContacts, c.Name, err)
			continue
		}
		result.Imported[store.TableContacts]++
	}

	for i := range doc.Data.TxLabels {
		l := &doc.Data.TxLabels[i]
		candidate := model.TxLabel{
			AccountID: accountID,
			TxHash:    l.TxHash,
			Label:     l.Label,
			Category:  l.Category,
			Amount:    l.Amount,
			Notes:     l.Notes,
		}
		if err := validate.TxLabel(&candidate); err != nil {
			report(store.TableLabels, l.TxHash, err)
			continue
		}
		_, err := s.labelRepo.Create(ctx, model.CreateTxLabelParams{
			AccountID: accountID,
			TxHash:    l.TxHash,
			Label:     l.Label,
			Category:  l.Category,
			Amount:    l.Amount,
			Notes:     l.Notes,
		})
		if err != nil {
			report(store.TableLabels, l.TxHash, err)
			continue
		}
		result.Imported[store.TableLabels]++
	}

	settings := doc.Data.Settings
	settings.AccountID = accountID
	if err := validate.Settings(&settings); err != nil {
		report(store.TableSettings, accountID, err)
	} else if err := s.settingsRepo.Put(ctx, &settings); err != nil {
		report(store.TableSettings, accountID, err)
	} else {
		result.Imported[store.TableSettings]++
	}

	for i := range doc.Data.Snapshots {
		snap := &doc.Data.Snapshots[i]
		candidate := model.Snapshot{
			AccountID:  accountID,
			CapturedAt: snap.CapturedAt,
			TotalValue: snap.TotalValue,
			Assets:     snap.Assets,
			Network:    snap.Network,
		}
		if err := validate.Snapshot(&candidate); err != nil {
			report(store.TableSnapshots, snap.CapturedAt.Format(time.RFC3339), err)
			continue
		}
		_, err := s.snapshotRepo.Create(ctx, model.CreateSnapshotParams{
			AccountID:  accountID,
			CapturedAt: snap.CapturedAt,
			TotalValue: snap.TotalValue,
			Assets:     snap.Assets,
			Network:    snap.Network,
		})
		if err != nil {
			report(store.TableSnapshots, snap.CapturedAt.Format(time.RFC3339), err)
			continue
		}
		result.Imported[store.TableSnapshots]++
	}

	for i := range doc.Data.TrackedTokens {
		tok := &doc.Data.TrackedTokens[i]
		candidate := model.TrackedToken{
			AccountID: accountID,
			Address:   validate.NormalizeAddress(tok.Address),
			Symbol:    tok.Symbol,
			Name:      tok.Name,
			Decimals:  tok.Decimals,
			Network:   tok.Network,
		}
		if err := validate.TrackedToken(&candidate); err != nil {
			report(store.TableTokens, tok.Symbol, err)
			continue
		}
		_, err := s.tokenRepo.Create(ctx, model.CreateTrackedTokenParams{
			AccountID: accountID,
			Address:   candidate.Address,
			Symbol:    tok.Symbol,
			Name:      tok.Name,
			Decimals:  tok.Decimals,
			Network:   tok.Network,
		})
		if err != nil {
			report(store.TableTokens, tok.Symbol, err)
			continue
		}
		result.Imported[store.TableTokens]++
	}

	log.Info().
		Str("accountId", accountID).
		Int("issues", len(result.Issues)).
		Msg("import completed")

	return result, nil
}

// DeleteAllAccountData wipes every record the account owns, in one
// transaction, without touching the account itself.
func (s *PortabilityService) DeleteAllAccountData(ctx context.Context, accountID string) error {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return apperrors.NotFound("Account")
	}

	err = s.st.Update(func(tx *store.Tx) error {
		return s.wipeOwnedData(ctx, tx, accountID)
	})
	if err != nil {
		return err
	}

	log.Info().Str("accountId", accountID).Msg("account data wiped")
	return nil
}

// DeleteAccount removes the account and everything it owns, sessions
// included, in one transaction.
func (s *PortabilityService) DeleteAccount(ctx context.Context, accountID string) error {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return apperrors.NotFound("Account")
	}

	err = s.st.Update(func(tx *store.Tx) error {
		if err := s.wipeOwnedData(ctx, tx, accountID); err != nil {
			return err
		}
		if _, err := s.sessionRepo.WithTx(tx).DeleteByAccount(ctx, accountID); err != nil {
			return err
		}
		return s.accountRepo.WithTx(tx).Delete(ctx, accountID)
	})
	if err != nil {
		return err
	}

	log.Info().Str("accountId", accountID).Msg("account deleted")
	return nil
}

func (s *PortabilityService) wipeOwnedData(ctx context.Context, tx *store.Tx, accountID string) error {
	if _, err := s.conversationRepo.WithTx(tx).DeleteByAccount(ctx, accountID); err != nil {
		return err
	}
	if _, err := s.contactRepo.WithTx(tx).DeleteByAccount(ctx, accountID); err != nil {
		return err
	}
	if _, err := s.labelRepo.WithTx(tx).DeleteByAccount(ctx, accountID); err != nil {
		return err
	}
	if err := s.settingsRepo.WithTx(tx).Delete(ctx, accountID); err != nil {
		return err
	}
	if _, err := s.snapshotRepo.WithTx(tx).DeleteByAccount(ctx, accountID); err != nil {
		return err
	}
	if _, err := s.tokenRepo.WithTx(tx).DeleteByAccount(ctx, accountID); err != nil {
		return err
	}
	return nil
}

// Stats counts the account's records per table.
func (s *PortabilityService) Stats(ctx context.Context, accountID string) (*AccountStats, error) {
	stats := &AccountStats{}
	var err error
	if stats.Conversations, err = s.conversationRepo.CountByAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if stats.Contacts, err = s.contactRepo.CountByAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if stats.TxLabels, err = s.labelRepo.CountByAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if stats.Snapshots, err = s.snapshotRepo.CountByAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if stats.TrackedTokens, err = s.tokenRepo.CountByAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if stats.Sessions, err = s.sessionRepo.CountByAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return stats, nil
}
