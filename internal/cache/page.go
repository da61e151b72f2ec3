package cache

// Cursor points at the next page of a listing. Count carries the client's
// original seen-count forward so the window stays stable while new items
// accrue at the head of the list.
type Cursor struct {
	Page  int   `json:"page"`
	Count int64 `json:"count,omitempty"`
}
