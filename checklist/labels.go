package checklist

import "stationdesk/models"

// UnknownItem labels a result whose text cannot be recovered from the submission or the template.
const UnknownItem = "未知項目"

// ItemLabel resolves the display text of a result. Precedence:
//  1. the content stored on the result when it was submitted
//  2. the live template row with the same item id
//  3. UnknownItem
//
// Historical submissions keep rendering after template rows are edited or deleted.
func ItemLabel(r models.CheckResult, template []models.ChecklistItem) string {
	if r.Content != "" {
		return r.Content
	}
	for _, item := range template {
		if item.ID == r.ItemID && item.Content != "" {
			return item.Content
		}
	}
	return UnknownItem
}

// ItemCategory resolves the category of a result with the same precedence as ItemLabel.
func ItemCategory(r models.CheckResult, template []models.ChecklistItem) string {
	if r.Category != "" {
		return r.Category
	}
	for _, item := range template {
		if item.ID == r.ItemID && item.Category != "" {
			return item.Category
		}
	}
	return ""
}

// CategoryGroup is a template category and its items.
type CategoryGroup struct {
	Category string                 `json:"category"`
	Items    []models.ChecklistItem `json:"items"`
}

// GroupByCategory groups template items by category, keeping the order categories first appear in.
func GroupByCategory(items []models.ChecklistItem) []CategoryGroup {
	var groups []CategoryGroup
	index := map[string]int{}
	for _, item := range items {
		i, ok := index[item.Category]
		if !ok {
			i = len(groups)
			index[item.Category] = i
			groups = append(groups, CategoryGroup{Category: item.Category})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}
