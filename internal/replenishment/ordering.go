package replenishment

import (
	"cmp"
	"slices"
	"strings"
)

// MostUrgent returns up to n items ordered by ascending current coverage.
// Items whose coverage is unknown are left out of the ranking. Ties keep
// their original order. The input slice is not reordered.
func MostUrgent[T any](items []T, n int, coverage func(T) (float64, bool)) []T {
	if n <= 0 || len(items) == 0 {
		return []T{}
	}
	ranked := make([]T, 0, len(items))
	for _, it := range items {
		if _, ok := coverage(it); ok {
			ranked = append(ranked, it)
		}
	}
	slices.SortStableFunc(ranked, func(a, b T) int {
		ca, _ := coverage(a)
		cb, _ := coverage(b)
		return cmp.Compare(ca, cb)
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// MostUrgentItems is MostUrgent over plain items.
func MostUrgentItems(items []Item, n int) []Item {
	return MostUrgent(items, n, Item.CurrentCoverage)
}

// TransferPriority is the opportunity tag of a transfer suggestion. It is a
// separate axis from UrgencyTier.
type TransferPriority int

const (
	PriorityHigh TransferPriority = iota
	PriorityMedium
	PriorityLow
	PriorityUnmapped
)

var priorityFolder = strings.NewReplacer("É", "E", "é", "e")

// ParseTransferPriority maps ALTA/MEDIA/BAIXA (accents and case ignored).
func ParseTransferPriority(tag string) TransferPriority {
	switch strings.ToUpper(priorityFolder.Replace(strings.TrimSpace(tag))) {
	case "ALTA":
		return PriorityHigh
	case "MEDIA":
		return PriorityMedium
	case "BAIXA":
		return PriorityLow
	}
	return PriorityUnmapped
}

func (p TransferPriority) String() string {
	switch p {
	case PriorityHigh:
		return "ALTA"
	case PriorityMedium:
		return "MEDIA"
	case PriorityLow:
		return "BAIXA"
	}
	return ""
}

// PriorityOf returns the transfer priority of an item; items without transfer
// detail are unmapped.
func PriorityOf(it Item) TransferPriority {
	if it.Transfer == nil {
		return PriorityUnmapped
	}
	return ParseTransferPriority(it.Transfer.Priority)
}

// SortByTransferPriority returns a copy ordered ALTA, MEDIA, BAIXA, then
// unmapped tags, stable within each tag.
func SortByTransferPriority(items []Item) []Item {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Item) int {
		return cmp.Compare(PriorityOf(a), PriorityOf(b))
	})
	return sorted
}
