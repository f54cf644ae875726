package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/store"
	"github.com/heliawallet/vault-server-go/internal/util"
	"github.com/heliawallet/vault-server-go/internal/validate"
)

type ContactRepository interface {
	Create(ctx context.Context, params model.CreateContactParams) (*model.Contact, error)
	FindByID(ctx context.Context, id string) (*model.Contact, error)
	ListByAccount(ctx context.Context, accountID string) ([]model.Contact, error)
	// SearchByName returns the account's contacts whose lowercased name starts
	// with the given prefix.
	SearchByName(ctx context.Context, accountID, namePrefix string) ([]model.Contact, error)
	FindByAddress(ctx context.Context, accountID, address string) ([]model.Contact, error)
	Update(ctx context.Context, contact *model.Contact) error
	Delete(ctx context.Context, id string) error
	DeleteByAccount(ctx context.Context, accountID string) (int, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)
	WithTx(tx *store.Tx) ContactRepository
}

type contactRepo struct {
	runner
}

func NewContactRepository(st *store.Store) ContactRepository {
	return &contactRepo{runner{st: st}}
}

func (r *contactRepo) WithTx(tx *store.Tx) ContactRepository {
	return &contactRepo{runner{tx: tx}}
}

func contactNameKey(accountID, name string) string {
	return store.IndexKey(accountID, strings.ToLower(name))
}

func contactAddressKey(accountID, address string) string {
	return store.IndexKey(accountID, validate.NormalizeAddress(address))
}

func (r *contactRepo) Create(ctx context.Context, params model.CreateContactParams) (*model.Contact, error) {
	now := time.Now()
	contact := &model.Contact{
		ID:             util.NewID(),
		AccountID:      params.AccountID,
		Name:           params.Name,
		Address:        validate.NormalizeAddress(params.Address),
		Alias:          params.Alias,
		Tags:           params.Tags,
		Notes:          params.Notes,
		NotesEncrypted: params.NotesEncrypted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := r.update(func(tx *store.Tx) error {
		if err := r.addIndexes(tx, contact); err != nil {
			return err
		}
		return insertRecord(tx, store.TableContacts, contact.ID, contact)
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

func (r *contactRepo) addIndexes(tx *store.Tx, contact *model.Contact) error {
	if err := tx.AddIndex(store.TableContacts, store.IndexContactAccount, contact.AccountID, contact.ID); err != nil {
		return err
	}
	if err := tx.AddIndex(store.TableContacts, store.IndexContactName, contactNameKey(contact.AccountID, contact.Name), contact.ID); err != nil {
		return err
	}
	return tx.AddIndex(store.TableContacts, store.IndexContactAddress, contactAddressKey(contact.AccountID, contact.Address), contact.ID)
}

func (r *contactRepo) removeIndexes(tx *store.Tx, contact *model.Contact) error {
	if err := tx.RemoveIndex(store.TableContacts, store.IndexContactAccount, contact.AccountID, contact.ID); err != nil {
		return err
	}
	if err := tx.RemoveIndex(store.TableContacts, store.IndexContactName, contactNameKey(contact.AccountID, contact.Name), contact.ID); err != nil {
		return err
	}
	return tx.RemoveIndex(store.TableContacts, store.IndexContactAddress, contactAddressKey(contact.AccountID, contact.Address), contact.ID)
}

func (r *contactRepo) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	var contact *model.Contact
	err := r.view(func(tx *store.Tx) error {
		var err error
		contact, err = getRecord[model.Contact](tx, store.TableContacts, id)
		return err
	})
	return contact, err
}

func (r *contactRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Contact, error) {
	var contacts []model.Contact
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanIndex(store.TableContacts, store.IndexContactAccount, accountID)
		if err != nil {
			return err
		}
		contacts, err = fetchAll[model.Contact](tx, store.TableContacts, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(contacts, func(i, j int) bool {
		return strings.ToLower(contacts[i].Name) < strings.ToLower(contacts[j].Name)
	})
	return contacts, nil
}

func (r *contactRepo) SearchByName(ctx context.Context, accountID, namePrefix string) ([]model.Contact, error) {
	var contacts []model.Contact
	err := r.view(func(tx *store.Tx) error {
		prefix := store.IndexKey(accountID, strings.ToLower(namePrefix))
		ids, err := tx.ScanIndexPrefix(store.TableContacts, store.IndexContactName, prefix)
		if err != nil {
			return err
		}
		contacts, err = fetchAll[model.Contact](tx, store.TableContacts, ids)
		return err
	})
	return contacts, err
}

func (r *contactRepo) FindByAddress(ctx context.Context, accountID, address string) ([]model.Contact, error) {
	var contacts []model.Contact
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanIndex(store.TableContacts, store.IndexContactAddress, contactAddressKey(accountID, address))
		if err != nil {
			return err
		}
		contacts, err = fetchAll[model.Contact](tx, store.TableContacts, ids)
		return err
	})
	return contacts, err
}

func (r *contactRepo) Update(ctx context.Context, contact *model.Contact) error {
	contact.Address = validate.NormalizeAddress(contact.Address)
	contact.UpdatedAt = time.Now()
	return r.update(func(tx *store.Tx) error {
		old, err := getRecord[model.Contact](tx, store.TableContacts, contact.ID)
		if err != nil {
			return err
		}
		if old == nil {
			return apperrors.NotFound("Contact")
		}
		if err := r.removeIndexes(tx, old); err != nil {
			return err
		}
		if err := r.addIndexes(tx, contact); err != nil {
			return err
		}
		return putRecord(tx, store.TableContacts, contact.ID, contact)
	})
}

func (r *contactRepo) Delete(ctx context.Context, id string) error {
	return r.update(func(tx *store.Tx) error {
		contact, err := getRecord[model.Contact](tx, store.TableContacts, id)
		if err != nil {
			return err
		}
		if contact == nil {
			return nil
		}
		if err := r.removeIndexes(tx, contact); err != nil {
			return err
		}
		return tx.Delete(store.TableContacts, id)
	})
}

func (r *contactRepo) DeleteByAccount(ctx context.Context, accountID string) (int, error) {
	count := 0
	err := r.update(func(tx *store.Tx) error {
		ids, err := tx.ScanIndex(store.TableContacts, store.IndexContactAccount, accountID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			contact, err := getRecord[model.Contact](tx, store.TableContacts, id)
			if err != nil {
				return err
			}
			if contact == nil {
				continue
			}
			if err := r.removeIndexes(tx, contact); err != nil {
				return err
			}
			if err := tx.Delete(store.TableContacts, id); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (r *contactRepo) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanIndex(store.TableContacts, store.IndexContactAccount, accountID)
		if err != nil {
			return err
		}
		count = len(ids)
		return nil
	})
	return count, err
}
