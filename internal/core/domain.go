package core

// DateLayout is the storage format for all full dates.
const DateLayout = "2006-01-02"

// PeriodLayout is the storage format for recurrence period markers (one per
// calendar month).
const PeriodLayout = "2006-01"

type (
	// Income is a single income row. Rows with Recurring set double as
	// templates for the recurrence engine: RecurringDay holds the
	// day-of-month ("1".."31") on which a new row is materialized, and
	// LastMaterialized holds the last YYYY-MM period the engine cloned
	// this row in.
	Income struct {
		ID               int64
		Source           string
		Amount           float64
		Date             string
		Recurring        bool
		RecurringDay     string
		LastMaterialized string
	}

	// Expense mirrors Income with an item name instead of a source.
	// PurchaseID links an expense created by the fulfillment workflow back
	// to the planned purchase it realized; zero means no linkage.
	Expense struct {
		ID               int64
		Item             string
		Amount           float64
		Date             string
		Recurring        bool
		RecurringDay     string
		LastMaterialized string
		PurchaseID       int64
	}

	// PlannedPurchase is a wishlist row. Purchased flips false→true exactly
	// once, via the fulfillment workflow.
	PlannedPurchase struct {
		ID        int64
		Item      string
		Amount    float64
		Purchased bool
		DueDate   string
	}

	// Savings is present in the schema and cleared by ClearAll; no workflow
	// writes it yet.
	Savings struct {
		ID        int64
		Amount    float64
		Frequency string
		Date      string
	}
)
