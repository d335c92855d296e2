package resolver

import (
	"errors"
	"fmt"
	"strings"

	"patrol-service/internal/domain/patrol"
)

var ErrUnknownChecklistItem = errors.New("unknown checklist item")

// UnidentifiedCharge is returned when no statute matches the officer's text.
const UnidentifiedCharge = "Unidentified Offense - Manual Entry Required"

// Resolution is the resolver's reading of a free-text offense description.
type Resolution struct {
	Description    string `json:"description"`
	Fine           int64  `json:"fine"`
	SafetyCritical bool   `json:"is_safety_critical"`
	Code           string `json:"code,omitempty"`
	Act            string `json:"act"`
	Section        string `json:"section"`
	Matched        bool   `json:"matched"`
}

// LineItem turns the resolution into a cart candidate.
func (r Resolution) LineItem() patrol.OffenseLineItem {
	return patrol.OffenseLineItem{
		Category:    patrol.CategoryAIDetectedDefect,
		Description: r.Description,
		Fine:        r.Fine,
		Code:        r.Code,
	}
}

// Resolve picks the statute sharing the most keywords with text. Ties go to
// the statute listed first. Without any match a zero-fine placeholder is
// returned and Matched is false.
func Resolve(text string) Resolution {
	lowered := strings.ToLower(text)

	var (
		best       *Statute
		maxMatches int
	)
	for i := range statutes {
		matches := 0
		for _, k := range statutes[i].Keywords {
			if strings.Contains(lowered, k) {
				matches++
			}
		}
		if matches > maxMatches {
			maxMatches = matches
			best = &statutes[i]
		}
	}

	if best == nil {
		return Resolution{
			Description: UnidentifiedCharge,
			Act:         "Road Traffic Act",
			Section:     "General Section",
		}
	}
	return Resolution{
		Description:    best.Charge,
		Fine:           best.Fine,
		SafetyCritical: best.SafetyCritical,
		Code:           best.Code,
		Act:            best.Act,
		Section:        best.Section,
		Matched:        true,
	}
}

// Statutes returns the code book.
func Statutes() []Statute {
	out := make([]Statute, len(statutes))
	copy(out, statutes)
	return out
}

// Checklist returns the roadside inspection checks.
func Checklist() []ChecklistItem {
	out := make([]ChecklistItem, len(checklist))
	copy(out, checklist)
	return out
}

// InspectionDefects maps failed checklist IDs to cart candidates in checklist
// order.
func InspectionDefects(failedIDs []string) ([]patrol.OffenseLineItem, error) {
	failed := make(map[string]bool, len(failedIDs))
	for _, id := range failedIDs {
		id = strings.ToLower(strings.TrimSpace(id))
		if _, ok := checklistItem(id); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChecklistItem, id)
		}
		failed[id] = true
	}

	items := make([]patrol.OffenseLineItem, 0, len(failed))
	for _, c := range checklist {
		if !failed[c.ID] {
			continue
		}
		items = append(items, patrol.OffenseLineItem{
			Category:    patrol.CategoryInspectionDefect,
			Description: c.Label,
			Fine:        c.Fine,
			Code:        c.Code,
		})
	}
	return items, nil
}

func checklistItem(id string) (ChecklistItem, bool) {
	for _, c := range checklist {
		if c.ID == id {
			return c, true
		}
	}
	return ChecklistItem{}, false
}
