package model

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var ValidRoles = []string{string(RoleUser), string(RoleAdmin)}

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

var ValidMessageRoles = []string{
	string(MessageRoleUser),
	string(MessageRoleAssistant),
	string(MessageRoleSystem),
}

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

var ValidThemes = []string{string(ThemeLight), string(ThemeDark), string(ThemeSystem)}

var ValidCurrencies = []string{"usd", "eur", "gbp", "jpy", "krw", "btc", "eth"}

var ValidLanguages = []string{"en", "ko", "ja", "de", "fr", "es"}
