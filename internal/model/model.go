package model

import (
	"strings"
	"time"
)

// ProvisionalPrefix marks note IDs minted on the client before the server has acknowledged them.
const ProvisionalPrefix = "tmp-"

type Page struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

type Note struct {
	ID     string `json:"id"`
	PageID string `json:"pageId"`

	ParentID   *string `json:"parentId,omitempty"`
	OrderIndex int     `json:"orderIndex"`

	Content   string `json:"content"`
	Collapsed bool   `json:"collapsed,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Parent returns the parent ID, or "" for a root note.
func (n Note) Parent() string {
	if n.ParentID == nil {
		return ""
	}
	return strings.TrimSpace(*n.ParentID)
}

func (n Note) IsRoot() bool { return n.Parent() == "" }

func (n Note) Provisional() bool { return IsProvisionalID(n.ID) }

// Clone returns a copy that shares no pointers with n.
func (n Note) Clone() Note {
	out := n
	if n.ParentID != nil {
		pid := *n.ParentID
		out.ParentID = &pid
	}
	return out
}

func IsProvisionalID(id string) bool {
	return strings.HasPrefix(strings.TrimSpace(id), ProvisionalPrefix)
}

// ParentRef converts "" to nil so callers can pass plain strings around.
func ParentRef(id string) *string {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return &id
}

func SameParent(a, b *string) bool {
	if a == nil || strings.TrimSpace(*a) == "" {
		return b == nil || strings.TrimSpace(*b) == ""
	}
	if b == nil {
		return false
	}
	return strings.TrimSpace(*a) == strings.TrimSpace(*b)
}

// NotePatch is a partial update. Nil fields are left untouched.
// SetParent distinguishes "move to root" (SetParent with a nil ParentID) from "keep parent".
type NotePatch struct {
	Content    *string `json:"content,omitempty"`
	SetParent  bool    `json:"setParent,omitempty"`
	ParentID   *string `json:"parentId,omitempty"`
	OrderIndex *int    `json:"orderIndex,omitempty"`
	Collapsed  *bool   `json:"collapsed,omitempty"`
}

func (p NotePatch) Empty() bool {
	return p.Content == nil && !p.SetParent && p.OrderIndex == nil && p.Collapsed == nil
}

// Apply returns n with the patch merged in. UpdatedAt is left to the caller.
func (p NotePatch) Apply(n Note) Note {
	out := n.Clone()
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.SetParent {
		pid := ""
		if p.ParentID != nil {
			pid = *p.ParentID
		}
		out.ParentID = ParentRef(pid)
	}
	if p.OrderIndex != nil {
		out.OrderIndex = *p.OrderIndex
	}
	if p.Collapsed != nil {
		out.Collapsed = *p.Collapsed
	}
	return out
}

// MovePatch builds the {parent, order} update issued by indent and outdent.
func MovePatch(parentID string, orderIndex int) NotePatch {
	idx := orderIndex
	return NotePatch{SetParent: true, ParentID: ParentRef(parentID), OrderIndex: &idx}
}

func ContentPatch(content string) NotePatch {
	c := content
	return NotePatch{Content: &c}
}

// OrderUpdate is one renumbering pair sent with BatchUpdateOrderIndexes.
type OrderUpdate struct {
	ID         string `json:"id"`
	OrderIndex int    `json:"orderIndex"`
}
