package store

// Table names. Each table is one data bucket keyed by primary key, plus one
// bucket per secondary index.
const (
	TableAccounts      = "accounts"
	TableSessions      = "sessions"
	TableConversations = "conversations"
	TableContacts      = "contacts"
	TableLabels        = "tx_labels"
	TableSettings      = "settings"
	TableSnapshots     = "snapshots"
	TableTokens        = "tracked_tokens"
)

// Index names.
const (
	IndexAccountEmail  = "email"  // unique
	IndexAccountWallet = "wallet" // unique

	IndexSessionAccount = "account"
	IndexSessionRefresh = "refresh" // unique

	IndexConversationUpdated = "account_updated" // compound (account, updatedAt)

	IndexContactAccount = "account"
	IndexContactName    = "name"    // (account, lowercased name)
	IndexContactAddress = "address" // (account, address)

	IndexLabelTx = "tx" // unique (account, txHash)

	IndexSnapshotCaptured = "account_captured" // compound (account, capturedAt)

	IndexTokenAccount  = "account"
	IndexTokenContract = "contract" // unique (account, network, address)
)

type Index struct {
	Name   string
	Unique bool
}

type Table struct {
	Name    string
	Indexes []Index
}

// Tables is the full schema created on first open. Schema changes append
// migrations in migrate.go; existing tables are never dropped.
var Tables = []Table{
	{Name: TableAccounts, Indexes: []Index{
		{Name: IndexAccountEmail, Unique: true},
		{Name: IndexAccountWallet, Unique: true},
	}},
	{Name: TableSessions, Indexes: []Index{
		{Name: IndexSessionAccount},
		{Name: IndexSessionRefresh, Unique: true},
	}},
	{Name: TableConversations, Indexes: []Index{
		{Name: IndexConversationUpdated},
	}},
	{Name: TableContacts, Indexes: []Index{
		{Name: IndexContactAccount},
		{Name: IndexContactName},
		{Name: IndexContactAddress},
	}},
	{Name: TableLabels, Indexes: []Index{
		{Name: IndexLabelTx, Unique: true},
	}},
	{Name: TableSettings},
	{Name: TableSnapshots, Indexes: []Index{
		{Name: IndexSnapshotCaptured},
	}},
	{Name: TableTokens, Indexes: []Index{
		{Name: IndexTokenAccount},
		{Name: IndexTokenContract, Unique: true},
	}},
}

// DependentTables are the tables cascaded when an account's data is deleted;
// accounts itself is handled separately.
var DependentTables = []string{
	TableSessions,
	TableConversations,
	TableContacts,
	TableLabels,
	TableSettings,
	TableSnapshots,
	TableTokens,
}
