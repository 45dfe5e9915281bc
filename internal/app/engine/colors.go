package engine

import (
	"sort"

	"github.com/raaulc/shared-tasks/internal/app/system/normalize"
	"github.com/raaulc/shared-tasks/internal/domain/models"
)

// Member is a workspace member with its derived presentation values.
type Member struct {
	Profile      models.Profile
	DisplayValue string
	Initials     string
	Color        string
}

// AssigneeValue is the denormalized display value stored on items for a
// member: the full name when set, else the name derived from the email.
func AssigneeValue(p models.Profile) string {
	if p.FullName != "" {
		return p.FullName
	}
	return normalize.DisplayNameFromEmail(p.Email)
}

// ColorFor returns the member's explicit color if set, else the palette
// color for its position in the sorted member list.
func ColorFor(p models.Profile, index int) string {
	if p.Color != nil && *p.Color != "" {
		return *p.Color
	}
	if index < 0 {
		index = 0
	}
	return models.MemberColorPalette[index%len(models.MemberColorPalette)]
}

// BuildMembers derives the presentation list from raw profiles: sorted by
// display value with ties broken by profile id, so two members with the
// same name keep stable positions, then colored by position.
func BuildMembers(profiles []models.Profile) []Member {
	members := make([]Member, 0, len(profiles))
	for _, p := range profiles {
		members = append(members, Member{
			Profile:      p,
			DisplayValue: AssigneeValue(p),
			Initials:     normalize.Initials(memberInitialsSource(p)),
		})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].DisplayValue != members[j].DisplayValue {
			return members[i].DisplayValue < members[j].DisplayValue
		}
		return members[i].Profile.ID < members[j].Profile.ID
	})
	for i := range members {
		members[i].Color = ColorFor(members[i].Profile, i)
	}
	return members
}

func memberInitialsSource(p models.Profile) string {
	if p.FullName != "" {
		return p.FullName
	}
	return normalize.DisplayNameFromEmail(p.Email)
}

// ColorForAssignee resolves an item's assignee display value against the
// member list. Unknown assignees get a fixed neutral color.
func ColorForAssignee(assignee string, members []Member) string {
	for _, m := range members {
		if m.DisplayValue == assignee {
			return m.Color
		}
	}
	return models.UnknownAssigneeColor
}
