// Package render is the visual side of the outline. The editor calls a Renderer in the same step as
// each store mutation so the screen never drifts from the data.
//
// Containers are implicit: a note element lives in the container of its parent (the page for roots).
// beforeID names the sibling element the note is inserted in front of; "" appends to the container.
package render

import "outliner-cli/internal/model"

type Renderer interface {
	AddNoteElement(n model.Note, level int, beforeID string)
	MoveNoteElement(n model.Note, level int, beforeID string)
	RemoveNoteElement(id string)
	SwitchToEditMode(id string)
	SwitchToRenderedMode(id string)
	// NestingLevel returns the displayed depth of id, or -1 when it has no element.
	NestingLevel(id string) int
	// Rebuild redraws everything from notes (page load, rollback).
	Rebuild(notes []model.Note)
}

// Renamer is implemented by renderers that key elements by note id and need to follow a
// provisional id being replaced by the server's.
type Renamer interface {
	RenameNoteElement(oldID, newID string)
}

// Nop is a headless renderer.
type Nop struct{}

func (Nop) AddNoteElement(model.Note, int, string)  {}
func (Nop) MoveNoteElement(model.Note, int, string) {}
func (Nop) RemoveNoteElement(string)                {}
func (Nop) SwitchToEditMode(string)                 {}
func (Nop) SwitchToRenderedMode(string)             {}
func (Nop) NestingLevel(string) int                 { return -1 }
func (Nop) Rebuild([]model.Note)                    {}
