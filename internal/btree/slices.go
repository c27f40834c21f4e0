package btree

import "ixtree/internal/rid"

func insertAt[T any](s []T, idx int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func removeAt[T any](s []T, idx int) []T {
	return append(s[:idx], s[idx+1:]...)
}

func insertRIDAt(s []rid.RID, idx int, v rid.RID) []rid.RID {
	return insertAt(s, idx, v)
}

func removeRIDAt(s []rid.RID, idx int) []rid.RID {
	return removeAt(s, idx)
}
