package service

import (
	"context"
	"time"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/repository"
	"github.com/heliawallet/vault-server-go/internal/util"
	"github.com/heliawallet/vault-server-go/internal/validate"
)

// VaultService owns the account-scoped vault data: conversations, contacts,
// transaction labels, settings, portfolio snapshots, and tracked tokens. Every
// read and write is checked against the owning account; records of other
// accounts are indistinguishable from absent ones. When an encryption key is
// configured, contact notes are sealed at rest.
type VaultService struct {
	conversationRepo repository.ConversationRepository
	contactRepo      repository.ContactRepository
	labelRepo        repository.TxLabelRepository
	settingsRepo     repository.SettingsRepository
	snapshotRepo     repository.SnapshotRepository
	tokenRepo        repository.TrackedTokenRepository

	encryptionKey string
}

func NewVaultService(
	conversationRepo repository.ConversationRepository,
	contactRepo repository.ContactRepository,
	labelRepo repository.TxLabelRepository,
	settingsRepo repository.SettingsRepository,
	snapshotRepo repository.SnapshotRepository,
	tokenRepo repository.TrackedTokenRepository,
	encryptionKey string,
) *VaultService {
	return &VaultService{
		conversationRepo: conversationRepo,
		contactRepo:      contactRepo,
		labelRepo:        labelRepo,
		settingsRepo:     settingsRepo,
		snapshotRepo:     snapshotRepo,
		tokenRepo:        tokenRepo,
		encryptionKey:    encryptionKey,
	}
}

// Conversations

func (s *VaultService) CreateConversation(ctx context.Context, params model.CreateConversationParams) (*model.Conversation, error) {
	candidate := model.Conversation{
		AccountID: params.AccountID,
		Title:     params.Title,
		Messages:  params.Messages,
		Tags:      params.Tags,
	}
	if err := validate.Conversation(&candidate); err != nil {
		return nil, err
	}
	return s.conversationRepo.Create(ctx, params)
}

func (s *VaultService) GetConversation(ctx context.Context, accountID, id string) (*model.Conversation, error) {
	conversation, err := s.conversationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conversation == nil || conversation.AccountID != accountID {
		return nil, apperrors.NotFound("Conversation")
	}
	return conversation, nil
}

func (s *VaultService) ListConversations(ctx context.Context, accountID string, limit int) ([]model.Conversation, error) {
	return s.conversationRepo.ListByAccount(ctx, accountID, limit)
}

// AppendMessage adds one message to the conversation, which moves it to the
// front of the account's listing.
func (s *VaultService) AppendMessage(ctx context.Context, accountID, id string, message model.Message) (*model.Conversation, error) {
	conversation, err := s.GetConversation(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	conversation.Messages = append(conversation.Messages, message)
	if err := validate.Conversation(conversation); err != nil {
		return nil, err
	}
	if err := s.conversationRepo.Update(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *VaultService) UpdateConversation(ctx context.Context, accountID, id, title string, tags []string) (*model.Conversation, error) {
	conversation, err := s.GetConversation(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	if title != "" {
		conversation.Title = title
	}
	if tags != nil {
		conversation.Tags = tags
	}
	if err := validate.Conversation(conversation); err != nil {
		return nil, err
	}
	if err := s.conversationRepo.Update(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *VaultService) DeleteConversation(ctx context.Context, accountID, id string) error {
	if _, err := s.GetConversation(ctx, accountID, id); err != nil {
		return err
	}
	return s.conversationRepo.Delete(ctx, id)
}

// Contacts

func (s *VaultService) CreateContact(ctx context.Context, params model.CreateContactParams) (*model.Contact, error) {
	candidate := model.Contact{
		AccountID: params.AccountID,
		Name:      params.Name,
		Address:   validate.NormalizeAddress(params.Address),
		Alias:     params.Alias,
		Tags:      params.Tags,
		Notes:     params.Notes,
	}
	if err := validate.Contact(&candidate); err != nil {
		return nil, err
	}

	sealed, encrypted, err := s.sealNotes(params.Notes)
	if err != nil {
		return nil, err
	}
	params.Notes = sealed
	params.NotesEncrypted = encrypted

	contact, err := s.contactRepo.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return s.openContact(contact)
}

func (s *VaultService) GetContact(ctx context.Context, accountID, id string) (*model.Contact, error) {
	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contact == nil || contact.AccountID != accountID {
		return nil, apperrors.NotFound("Contact")
	}
	return s.openContact(contact)
}

func (s *VaultService) ListContacts(ctx context.Context, accountID string) ([]model.Contact, error) {
	contacts, err := s.contactRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.openContacts(contacts)
}

func (s *VaultService) SearchContacts(ctx context.Context, accountID, namePrefix string) ([]model.Contact, error) {
	contacts, err := s.contactRepo.SearchByName(ctx, accountID, namePrefix)
	if err != nil {
		return nil, err
	}
	return s.openContacts(contacts)
}

func (s *VaultService) FindContactsByAddress(ctx context.Context, accountID, address string) ([]model.Contact, error) {
	contacts, err := s.contactRepo.FindByAddress(ctx, accountID, validate.NormalizeAddress(address))
	if err != nil {
		return nil, err
	}
	return s.openContacts(contacts)
}

func (s *VaultService) UpdateContact(ctx context.Context, accountID string, updated *model.Contact) (*model.Contact, error) {
	existing, err := s.contactRepo.FindByID(ctx, updated.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.AccountID != accountID {
		return nil, apperrors.NotFound("Contact")
	}

	updated.AccountID = accountID
	updated.Address = validate.NormalizeAddress(updated.Address)
	if err := validate.Contact(updated); err != nil {
		return nil, err
	}

	sealed, encrypted, err := s.sealNotes(updated.Notes)
	if err != nil {
		return nil, err
	}
	updated.Notes = sealed
	updated.NotesEncrypted = encrypted
	updated.CreatedAt = existing.CreatedAt

	if err := s.contactRepo.Update(ctx, updated); err != nil {
		return nil, err
	}
	return s.openContact(updated)
}

// TouchContact marks the contact as just used for recency ordering in clients.
func (s *VaultService) TouchContact(ctx context.Context, accountID, id string) error {
	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if contact == nil || contact.AccountID != accountID {
		return apperrors.NotFound("Contact")
	}
	now := time.Now()
	contact.LastUsedAt = &now
	return s.contactRepo.Update(ctx, contact)
}

func (s *VaultService) DeleteContact(ctx context.Context, accountID, id string) error {
	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if contact == nil || contact.AccountID != accountID {
		return apperrors.NotFound("Contact")
	}
	return s.contactRepo.Delete(ctx, id)
}

// sealNotes encrypts the notes text when an encryption key is configured.
// Empty notes and key-less deployments pass through unchanged.
func (s *VaultService) sealNotes(notes string) (string, bool, error) {
	if s.encryptionKey == "" || notes == "" {
		return notes, false, nil
	}
	payload, err := util.Encrypt(notes, s.encryptionKey)
	if err != nil {
		return "", false, apperrors.CryptoFailure("failed to encrypt contact notes").WithCause(err)
	}
	return payload.String(), true, nil
}

func (s *VaultService) openContact(contact *model.Contact) (*model.Contact, error) {
	if !contact.NotesEncrypted || contact.Notes == "" {
		return contact, nil
	}
	payload, err := util.ParseEncryptedPayload(contact.Notes)
	if err != nil {
		return nil, err
	}
	notes, err := util.Decrypt(payload, s.encryptionKey)
	if err != nil {
		return nil, err
	}
	out := *contact
	out.Notes = notes
	out.NotesEncrypted = false
	return &out, nil
}

func (s *VaultService) openContacts(contacts []model.Contact) ([]model.Contact, error) {
	for i := range contacts {
		opened, err := s.openContact(&contacts[i])
		if err != nil {
			return nil, err
		}
		contacts[i] = *opened
	}
	return contacts, nil
}

// Transaction labels

func (s *VaultService) CreateLabel(ctx context.Context, params model.CreateTxLabelParams) (*model.TxLabel, error) {
	candidate := model.TxLabel{
		AccountID: params.AccountID,
		TxHash:    params.TxHash,
		Label:     params.Label,
		Category:  params.Category,
		Amount:    params.Amount,
		Notes:     params.Notes,
	}
	if err := validate.TxLabel(&candidate); err != nil {
		return nil, err
	}
	return s.labelRepo.Create(ctx, params)
}

func (s *VaultService) GetLabelByTxHash(ctx context.Context, accountID, txHash string) (*model.TxLabel, error) {
	label, err := s.labelRepo.FindByTxHash(ctx, accountID, txHash)
	if err != nil {
		return nil, err
	}
	if label == nil {
		return nil, apperrors.NotFound("Label")
	}
	return label, nil
}

func (s *VaultService) ListLabels(ctx context.Context, accountID string) ([]model.TxLabel, error) {
	return s.labelRepo.ListByAccount(ctx, accountID)
}

func (s *VaultService) UpdateLabel(ctx context.Context, accountID string, updated *model.TxLabel) (*model.TxLabel, error) {
	existing, err := s.labelRepo.FindByID(ctx, updated.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.AccountID != accountID {
		return nil, apperrors.NotFound("Label")
	}
	updated.AccountID = accountID
	updated.CreatedAt = existing.CreatedAt
	if err := validate.TxLabel(updated); err != nil {
		return nil, err
	}
	if err := s.labelRepo.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *VaultService) DeleteLabel(ctx context.Context, accountID, id string) error {
	existing, err := s.labelRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil || existing.AccountID != accountID {
		return apperrors.NotFound("Label")
	}
	return s.labelRepo.Delete(ctx, id)
}

// Settings

// GetSettings returns the account's settings, synthesizing defaults when none
// have been written yet.
func (s *VaultService) GetSettings(ctx context.Context, accountID string) (*model.Settings, error) {
	settings, err := s.settingsRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		defaults := model.DefaultSettings(accountID)
		return &defaults, nil
	}
	return settings, nil
}

func (s *VaultService) UpdateSettings(ctx context.Context, accountID string, settings *model.Settings) (*model.Settings, error) {
	settings.AccountID = accountID
	if err := validate.Settings(settings); err != nil {
		return nil, err
	}
	if err := s.settingsRepo.Put(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Snapshots

func (s *VaultService) CreateSnapshot(ctx context.Context, params model.CreateSnapshotParams) (*model.Snapshot, error) {
	if params.CapturedAt.IsZero() {
		params.CapturedAt = time.Now()
	}
	candidate := model.Snapshot{
		AccountID:  params.AccountID,
		CapturedAt: params.CapturedAt,
		TotalValue: params.TotalValue,
		Assets:     params.Assets,
		Network:    params.Network,
	}
	if err := validate.Snapshot(&candidate); err != nil {
		return nil, err
	}
	return s.snapshotRepo.Create(ctx, params)
}

func (s *VaultService) ListSnapshots(ctx context.Context, accountID string, from, to time.Time, desc bool, limit int) ([]model.Snapshot, error) {
	return s.snapshotRepo.ListByAccount(ctx, accountID, from, to, desc, limit)
}

func (s *VaultService) DeleteSnapshot(ctx context.Context, accountID, id string) error {
	snapshot, err := s.snapshotRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if snapshot == nil || snapshot.AccountID != accountID {
		return apperrors.NotFound("Snapshot")
	}
	return s.snapshotRepo.Delete(ctx, id)
}

// Tracked tokens

func (s *VaultService) TrackToken(ctx context.Context, params model.CreateTrackedTokenParams) (*model.TrackedToken, error) {
	candidate := model.TrackedToken{
		AccountID: params.AccountID,
		Address:   validate.NormalizeAddress(params.Address),
		Symbol:    params.Symbol,
		Name:      params.Name,
		Decimals:  params.Decimals,
		Network:   params.Network,
	}
	if err := validate.TrackedToken(&candidate); err != nil {
		return nil, err
	}
	return s.tokenRepo.Create(ctx, params)
}

func (s *VaultService) ListTokens(ctx context.Context, accountID string) ([]model.TrackedToken, error) {
	return s.tokenRepo.ListByAccount(ctx, accountID)
}

func (s *VaultService) UntrackToken(ctx context.Context, accountID, id string) error {
	token, err := s.tokenRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if token == nil || token.AccountID != accountID {
		return apperrors.NotFound("Token")
	}
	return s.tokenRepo.Delete(ctx, id)
}
