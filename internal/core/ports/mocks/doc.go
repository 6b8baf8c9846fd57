// Package mocks provides test doubles for ports interfaces.
//
// These mocks are designed to be simple, thread-safe, in-memory implementations
// suitable for unit testing. Each mock provides:
//
//   - Default behavior that behaves like a real store
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Call counters for asserting interactions
//
// # Usage Example
//
//	func TestSession(t *testing.T) {
//		store := mocks.NewProfileStore()
//		store.SaveRunFn = func(context.Context, string, domain.Run) error {
//			return mocks.ErrStoreDown
//		}
//		// ... exercise code that persists runs
//	}
//
// # Available Mocks
//
//   - ProfileStore: implements ports.ProfileStore
package mocks
