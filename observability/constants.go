package observability

// Metric name prefixes
const (
	MetricPrefix = "guildbank"
)

// Metric names
const (
	// Ledger metrics
	MemberBalanceChangesTotal = MetricPrefix + ".ledger.member_changes_total"
	PoolBalanceChangesTotal   = MetricPrefix + ".ledger.pool_changes_total"

	// Reward metrics
	RewardsGrantedTotal  = MetricPrefix + ".rewards.granted_total"
	RewardsGrantedAmount = MetricPrefix + ".rewards.granted_amount"

	// Shop metrics
	PurchasesTotal = MetricPrefix + ".shop.purchases_total"

	// Giveaway metrics
	GiveawaysOpen         = MetricPrefix + ".giveaways.open"
	GiveawayEntriesTotal  = MetricPrefix + ".giveaways.entries_total"
	GiveawaysSettledTotal = MetricPrefix + ".giveaways.settled_total"

	// Health metrics
	SchedulingGapsTotal      = MetricPrefix + ".scheduler.gaps_total"
	InvariantViolationsTotal = MetricPrefix + ".invariant_violations_total"
	AccountResetsTotal       = MetricPrefix + ".accounts.resets_total"
)

// Label keys
const (
	LabelType  = "type"
	LabelState = "state"
)
