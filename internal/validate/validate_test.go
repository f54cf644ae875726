package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
)

const testAccountID = "9f1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	fields, ok := appErr.Details.([]FieldError)
	require.True(t, ok)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	return names
}

func TestRegister(t *testing.T) {
	valid := RegisterInput{
		Email:           "a@x.com",
		Password:        "Passw0rd!",
		ConfirmPassword: "Passw0rd!",
		Name:            "Alice",
	}

	t.Run("accepts valid input", func(t *testing.T) {
		assert.NoError(t, Register(valid))
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		in := valid
		in.Email = "not-an-email"
		assert.Contains(t, fieldNames(t, Register(in)), "email")
	})

	t.Run("rejects weak passwords", func(t *testing.T) {
		in := valid
		in.Password, in.ConfirmPassword = "short1", "short1"
		assert.Contains(t, fieldNames(t, Register(in)), "password")

		in.Password, in.ConfirmPassword = "lettersonly", "lettersonly"
		assert.Contains(t, fieldNames(t, Register(in)), "password")
	})

	t.Run("rejects mismatched confirmation", func(t *testing.T) {
		in := valid
		in.ConfirmPassword = "Different1!"
		assert.Contains(t, fieldNames(t, Register(in)), "confirmPassword")
	})
}

func TestConversation(t *testing.T) {
	valid := func() *model.Conversation {
		return &model.Conversation{
			AccountID: testAccountID,
			Title:     "Gas fees",
			Messages: []model.Message{
				{Role: model.MessageRoleUser, Content: "why so high", Timestamp: time.Now()},
				{Role: model.MessageRoleAssistant, Content: "network congestion", Timestamp: time.Now()},
			},
			Tags: []string{"fees"},
		}
	}

	t.Run("accepts valid conversation", func(t *testing.T) {
		assert.NoError(t, Conversation(valid()))
	})

	t.Run("rejects empty messages", func(t *testing.T) {
		c := valid()
		c.Messages = nil
		assert.Contains(t, fieldNames(t, Conversation(c)), "messages")
	})

	t.Run("rejects unknown message role", func(t *testing.T) {
		c := valid()
		c.Messages[0].Role = "bot"
		assert.Contains(t, fieldNames(t, Conversation(c)), "messages[0].role")
	})

	t.Run("rejects zero timestamp", func(t *testing.T) {
		c := valid()
		c.Messages[1].Timestamp = time.Time{}
		assert.Contains(t, fieldNames(t, Conversation(c)), "messages[1].timestamp")
	})

	t.Run("rejects nameless tool calls", func(t *testing.T) {
		c := valid()
		c.Messages[1].ToolCalls = []model.ToolCall{{}}
		assert.Contains(t, fieldNames(t, Conversation(c)), "messages[1].toolCalls[0].name")
	})
}

func TestContact(t *testing.T) {
	valid := func() *model.Contact {
		return &model.Contact{
			AccountID: testAccountID,
			Name:      "Exchange hot wallet",
			Address:   "0x1234567890abcdef1234567890abcdef12345678",
		}
	}

	t.Run("accepts valid contact", func(t *testing.T) {
		assert.NoError(t, Contact(valid()))
	})

	t.Run("rejects malformed address", func(t *testing.T) {
		c := valid()
		c.Address = "0x1234"
		assert.Contains(t, fieldNames(t, Contact(c)), "address")
	})

	t.Run("rejects missing name", func(t *testing.T) {
		c := valid()
		c.Name = "  "
		assert.Contains(t, fieldNames(t, Contact(c)), "name")
	})

	t.Run("rejects empty tag entries", func(t *testing.T) {
		c := valid()
		c.Tags = []string{"ok", ""}
		assert.Contains(t, fieldNames(t, Contact(c)), "tags[1]")
	})
}

func TestTxLabel(t *testing.T) {
	label := &model.TxLabel{
		AccountID: testAccountID,
		TxHash:    "0xabababababababababababababababababababababababababababababababab",
		Label:     "rent payment",
	}

	t.Run("accepts valid label", func(t *testing.T) {
		assert.NoError(t, TxLabel(label))
	})

	t.Run("rejects address-length hash", func(t *testing.T) {
		l := *label
		l.TxHash = "0x1234567890abcdef1234567890abcdef12345678"
		assert.Contains(t, fieldNames(t, TxLabel(&l)), "txHash")
	})
}

func TestSettings(t *testing.T) {
	t.Run("accepts defaults", func(t *testing.T) {
		s := model.DefaultSettings(testAccountID)
		assert.NoError(t, Settings(&s))
	})

	t.Run("rejects unknown theme and currency", func(t *testing.T) {
		s := model.DefaultSettings(testAccountID)
		s.Preferences.Theme = "sepia"
		s.Preferences.Currency = "doubloons"
		names := fieldNames(t, Settings(&s))
		assert.Contains(t, names, "preferences.theme")
		assert.Contains(t, names, "preferences.currency")
	})
}

func TestSnapshot(t *testing.T) {
	valid := func() *model.Snapshot {
		return &model.Snapshot{
			AccountID:  testAccountID,
			CapturedAt: time.Now(),
			TotalValue: 1234.5,
			Assets:     []model.AssetBalance{{Symbol: "ETH", Amount: 1, Price: 1234.5, Value: 1234.5}},
			Network:    "mainnet",
		}
	}

	t.Run("accepts valid snapshot", func(t *testing.T) {
		assert.NoError(t, Snapshot(valid()))
	})

	t.Run("rejects empty assets", func(t *testing.T) {
		s := valid()
		s.Assets = nil
		assert.Contains(t, fieldNames(t, Snapshot(s)), "assets")
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		s := valid()
		s.Assets[0].Amount = -1
		assert.Contains(t, fieldNames(t, Snapshot(s)), "assets[0].amount")
	})
}

func TestTrackedToken(t *testing.T) {
	valid := func() *model.TrackedToken {
		return &model.TrackedToken{
			AccountID: testAccountID,
			Address:   "0x1234567890abcdef1234567890abcdef12345678",
			Symbol:    "USDC",
			Decimals:  6,
			Network:   "mainnet",
		}
	}

	t.Run("accepts valid token", func(t *testing.T) {
		assert.NoError(t, TrackedToken(valid()))
	})

	t.Run("rejects out-of-range decimals", func(t *testing.T) {
		tk := valid()
		tk.Decimals = 40
		assert.Contains(t, fieldNames(t, TrackedToken(tk)), "decimals")
	})
}

func TestHelpers(t *testing.T) {
	t.Run("address format", func(t *testing.T) {
		assert.True(t, IsValidAddress("0x1234567890abcdef1234567890ABCDEF12345678"))
		assert.False(t, IsValidAddress("1234567890abcdef1234567890abcdef12345678"))
		assert.False(t, IsValidAddress("0x12345"))
	})

	t.Run("email normalization", func(t *testing.T) {
		assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.Com "))
	})
}
