package storage

import (
	"slices"
	"strings"

	"github.com/mcoot/realmkeeper/internal/model"
)

// Event listing bounds shared by every backend
const (
	DefaultEventLimit = 50
	MaxEventLimit     = 500
)

// NormalizeWindow clamps a limit/offset pair to the supported range
func NormalizeWindow(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// SortKingdoms orders kingdoms by creation time, then id
func SortKingdoms(kingdoms []*model.Kingdom) {
	slices.SortFunc(kingdoms, func(a, b *model.Kingdom) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
}
