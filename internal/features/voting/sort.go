package voting

import (
	"cmp"
	"slices"

	"serotonyl.ru/comment-popularity/internal/features/comments"
)

// SortByWeightDescending возвращает новый срез, отсортированный по весу
// по убыванию. Сортировка стабильная: при равном весе сохраняется исходный
// порядок. Исходный срез не меняется.
func SortByWeightDescending(list []*comments.Comment) []*comments.Comment {
	out := slices.Clone(list)
	slices.SortStableFunc(out, compareByWeightDesc)
	return out
}

func compareByWeightDesc(a, b *comments.Comment) int {
	return cmp.Compare(b.Weight, a.Weight)
}
