package booking

// Item is a named item with a positive quantity. Names are unique within a draft.
type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func indexOfItem(items []Item, name string) int {
	for i, it := range items {
		if it.Name == name {
			return i
		}
	}
	return -1
}
