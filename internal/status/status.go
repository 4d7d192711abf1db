package status

import "errors"

var (
	// ErrRecentlyServed rejects re-registration inside the cooldown window.
	ErrRecentlyServed = errors.New("queue: vehicle served within the cooldown window")

	// ErrAlreadyQueued rejects a vehicle that already holds an active entry.
	ErrAlreadyQueued = errors.New("queue: vehicle already has an active entry")

	// ErrInsufficientStock rejects a decrement larger than the remaining stock.
	ErrInsufficientStock = errors.New("stock: insufficient stock")

	// ErrNoFuel rejects registration at a station whose stock is exhausted.
	ErrNoFuel = errors.New("station: no fuel available")

	ErrNotFound = errors.New("not found")

	// ErrEntryNotCallable is returned when a serve or cancel targets an entry
	// that is not in the called state.
	ErrEntryNotCallable = errors.New("queue: entry is not in the physical queue")

	// ErrPromotionBusy is returned when the per-station promotion lock could
	// not be acquired in time.
	ErrPromotionBusy = errors.New("queue: a promotion is already in progress for this station")

	ErrInvalidVolume = errors.New("stock: dispensed volume must be positive")

	ErrInvalidCredentials = errors.New("session: invalid username or password")
	ErrSessionExpired     = errors.New("session: expired or unknown token")
)
