// internal/domain/models/colors.go
package models

// MemberColorPalette is the fixed ordered palette used to derive a display
// color for members without an explicit color. The fallback is keyed by the
// member's position in the sorted member list, cycling through the palette.
var MemberColorPalette = []string{
	"#8a9a5b", "#00c875", "#fdab3d", "#e44258", "#579bfc",
	"#6b7b4b", "#9ab06d", "#f9d648", "#7a8f5a", "#a25ddc",
}

// UnknownAssigneeColor is rendered when an item's assignee value matches no
// current member (e.g. the member was removed but the denormalized value is
// still draining).
const UnknownAssigneeColor = "#8a9a6b"
