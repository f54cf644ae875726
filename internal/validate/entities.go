package validate

import (
	"fmt"

	"github.com/heliawallet/vault-server-go/internal/model"
)

// Field length ceilings shared across entity schemas.
const (
	maxNameLen     = 100
	maxEmailLen    = 254
	maxTitleLen    = 200
	maxContentLen  = 50_000
	maxLabelLen    = 100
	maxCategoryLen = 50
	maxNotesLen    = 2000
	maxAliasLen    = 100
	maxSymbolLen   = 20
	maxNetworkLen  = 50
	maxTags        = 20
	maxTagLen      = 50
	maxMessages    = 1000
	maxAssets      = 500
	maxDecimals    = 36
	maxAutoLockMin = 1440
)

type RegisterInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Name            string `json:"name,omitempty"`
}

// Register checks a registration request, including the cross-field
// password-confirmation rule.
func Register(in RegisterInput) error {
	var errs Errors
	if !IsValidEmail(NormalizeEmail(in.Email)) {
		errs.Add("email", "must be a valid email address")
	}
	passwordStrength(&errs, "password", in.Password)
	if in.Password != in.ConfirmPassword {
		errs.Add("confirmPassword", "does not match password")
	}
	optionalString(&errs, "name", in.Name, maxNameLen)
	return errs.Err()
}

func Conversation(c *model.Conversation) error {
	var errs Errors
	if !IsValidUUID(c.AccountID) {
		errs.Add("accountId", "must be a valid UUID")
	}
	requireString(&errs, "title", c.Title, maxTitleLen)
	if len(c.Messages) == 0 {
		errs.Add("messages", "must not be empty")
	} else if len(c.Messages) > maxMessages {
		errs.Addf("messages", "must have at most %d entries", maxMessages)
	}
	for i, m := range c.Messages {
		validateMessage(&errs, fmt.Sprintf("messages[%d]", i), m)
	}
	checkTags(&errs, "tags", c.Tags)
	return errs.Err()
}

func validateMessage(errs *Errors, field string, m model.Message) {
	if !IsValidEnum(string(m.Role), model.ValidMessageRoles) || m.Role == "" {
		errs.Add(field+".role", "must be one of user, assistant, system")
	}
	if m.Content == "" && len(m.ToolCalls) == 0 {
		errs.Add(field+".content", "is required")
	}
	if len(m.Content) > maxContentLen {
		errs.Addf(field+".content", "must be at most %d characters", maxContentLen)
	}
	if m.Timestamp.IsZero() || m.Timestamp.Unix() <= 0 {
		errs.Add(field+".timestamp", "must be a positive timestamp")
	}
	for i, tc := range m.ToolCalls {
		if tc.Name == "" {
			errs.Addf(fmt.Sprintf("%s.toolCalls[%d].name", field, i), "is required")
		}
	}
}

func Contact(c *model.Contact) error {
	var errs Errors
	if !IsValidUUID(c.AccountID) {
		errs.Add("accountId", "must be a valid UUID")
	}
	requireString(&errs, "name", c.Name, maxNameLen)
	if !IsValidAddress(c.Address) {
		errs.Add("address", "must be a 0x-prefixed 40-hex-digit address")
	}
	optionalString(&errs, "alias", c.Alias, maxAliasLen)
	optionalString(&errs, "notes", c.Notes, maxNotesLen)
	checkTags(&errs, "tags", c.Tags)
	return errs.Err()
}

func TxLabel(l *model.TxLabel) error {
	var errs Errors
	if !IsValidUUID(l.AccountID) {
		errs.Add("accountId", "must be a valid UUID")
	}
	if !IsValidTxHash(l.TxHash) {
		errs.Add("txHash", "must be a 0x-prefixed 64-hex-digit transaction hash")
	}
	requireString(&errs, "label", l.Label, maxLabelLen)
	optionalString(&errs, "category", l.Category, maxCategoryLen)
	optionalString(&errs, "notes", l.Notes, maxNotesLen)
	return errs.Err()
}

func Settings(s *model.Settings) error {
	var errs Errors
	if !IsValidUUID(s.AccountID) {
		errs.Add("accountId", "must be a valid UUID")
	}
	optionalString(&errs, "profile.name", s.Profile.Name, maxNameLen)
	if s.Profile.Email != "" && !IsValidEmail(s.Profile.Email) {
		errs.Add("profile.email", "must be a valid email address")
	}
	optionalString(&errs, "profile.avatarUrl", s.Profile.AvatarURL, 500)
	if !IsValidEnum(s.Preferences.Currency, model.ValidCurrencies) || s.Preferences.Currency == "" {
		errs.Add("preferences.currency", "is not a supported currency")
	}
	if !IsValidEnum(s.Preferences.Language, model.ValidLanguages) || s.Preferences.Language == "" {
		errs.Add("preferences.language", "is not a supported language")
	}
	if !IsValidEnum(string(s.Preferences.Theme), model.ValidThemes) || s.Preferences.Theme == "" {
		errs.Add("preferences.theme", "must be one of light, dark, system")
	}
	if s.Preferences.AutoLockMinutes < 0 || s.Preferences.AutoLockMinutes > maxAutoLockMin {
		errs.Addf("preferences.autoLockMinutes", "must be between 0 and %d", maxAutoLockMin)
	}
	return errs.Err()
}

func Snapshot(s *model.Snapshot) error {
	var errs Errors
	if !IsValidUUID(s.AccountID) {
		errs.Add("accountId", "must be a valid UUID")
	}
	if s.CapturedAt.IsZero() || s.CapturedAt.Unix() <= 0 {
		errs.Add("capturedAt", "must be a positive timestamp")
	}
	if s.TotalValue < 0 {
		errs.Add("totalValue", "must not be negative")
	}
	if len(s.Assets) == 0 {
		errs.Add("assets", "must not be empty")
	} else if len(s.Assets) > maxAssets {
		errs.Addf("assets", "must have at most %d entries", maxAssets)
	}
	for i, a := range s.Assets {
		if a.Symbol == "" {
			errs.Addf(fmt.Sprintf("assets[%d].symbol", i), "is required")
		} else if len(a.Symbol) > maxSymbolLen {
			errs.Addf(fmt.Sprintf("assets[%d].symbol", i), "must be at most %d characters", maxSymbolLen)
		}
		if a.Address != "" && !IsValidAddress(a.Address) {
			errs.Addf(fmt.Sprintf("assets[%d].address", i), "must be a 0x-prefixed 40-hex-digit address")
		}
		if a.Amount < 0 {
			errs.Addf(fmt.Sprintf("assets[%d].amount", i), "must not be negative")
		}
	}
	requireString(&errs, "network", s.Network, maxNetworkLen)
	return errs.Err()
}

func TrackedToken(tk *model.TrackedToken) error {
	var errs Errors
	if !IsValidUUID(tk.AccountID) {
		errs.Add("accountId", "must be a valid UUID")
	}
	if !IsValidAddress(tk.Address) {
		errs.Add("address", "must be a 0x-prefixed 40-hex-digit address")
	}
	requireString(&errs, "symbol", tk.Symbol, maxSymbolLen)
	optionalString(&errs, "name", tk.Name, maxNameLen)
	if tk.Decimals < 0 || tk.Decimals > maxDecimals {
		errs.Addf("decimals", "must be between 0 and %d", maxDecimals)
	}
	requireString(&errs, "network", tk.Network, maxNetworkLen)
	return errs.Err()
}
