package sema

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/strager/pcc/types"
)

// ErrSymbolExists is returned by SymbolManager.AddSymbol when the name is
// already bound in the current scope, or is bound to a loop variable in an
// enclosing scope.
var ErrSymbolExists = errors.New("symbol already exists")

// SymbolTable holds the symbols of one scope in declaration order.
type SymbolTable struct {
	entries []*SymbolEntry
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{}
}

// Lookup returns the first entry named name, or nil.
func (t *SymbolTable) Lookup(name string) *SymbolEntry {
	for _, entry := range t.entries {
		if entry.Name == name {
			return entry
		}
	}
	return nil
}

func (t *SymbolTable) Entries() []*SymbolEntry {
	return t.entries
}

func (t *SymbolTable) add(entry *SymbolEntry) {
	t.entries = append(t.entries, entry)
}

// Dump writes the table in the fixed-width layout of the -dump trace.
func (t *SymbolTable) Dump(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("=", 110) + "\n")
	fmt.Fprintf(&sb, "%-33s%-11s%-11s%-17s%-11s\n", "Name", "Kind", "Level", "Type", "Attribute")
	sb.WriteString(strings.Repeat("-", 110) + "\n")
	for _, entry := range t.entries {
		scope := "(local)"
		if entry.Level == 0 {
			scope = "(global)"
		}
		fmt.Fprintf(&sb, "%-33s%-11s%d%-10s%-17s%-11s\n",
			entry.Name, entry.Kind, entry.Level, scope, entry.Type, entry.Attribute)
	}
	sb.WriteString(strings.Repeat("-", 110) + "\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

const (
	// firstLocalOffset is the offset of the first local in a frame. The
	// slots above it hold the return address and the saved frame pointer.
	firstLocalOffset = -12
	wordSize         = 4
)

// SymbolManager is the stack of scopes being analyzed or generated. It also
// hands out frame offsets and labels.
type SymbolManager struct {
	tables      []*SymbolTable
	localOffset int
	nextLabel   int
}

func NewSymbolManager() *SymbolManager {
	return &SymbolManager{
		localOffset: firstLocalOffset,
		nextLabel:   1,
	}
}

// PushScope enters a new, empty scope.
func (m *SymbolManager) PushScope() {
	m.PushTable(NewSymbolTable())
}

// PushTable enters a scope whose symbols were collected earlier.
func (m *SymbolManager) PushTable(t *SymbolTable) {
	m.tables = append(m.tables, t)
}

// PopScope leaves the current scope and returns its table.
func (m *SymbolManager) PopScope() *SymbolTable {
	if len(m.tables) == 0 {
		panic("PopScope with no scope")
	}
	t := m.tables[len(m.tables)-1]
	m.tables = m.tables[:len(m.tables)-1]
	return t
}

// CurrentLevel is the nesting depth of the current scope. The global scope
// is level 0.
func (m *SymbolManager) CurrentLevel() int {
	return len(m.tables) - 1
}

// CurrentTable returns the innermost table, or nil if no scope is open.
func (m *SymbolManager) CurrentTable() *SymbolTable {
	if len(m.tables) == 0 {
		return nil
	}
	return m.tables[len(m.tables)-1]
}

// Lookup searches from the current scope outward.
func (m *SymbolManager) Lookup(name string) *SymbolEntry {
	for i := len(m.tables) - 1; i >= 0; i-- {
		if entry := m.tables[i].Lookup(name); entry != nil {
			return entry
		}
	}
	return nil
}

// AddSymbol declares name in the current scope.
//
// Variables of every kind also collide with a loop variable of the same
// name in any enclosing scope.
func (m *SymbolManager) AddSymbol(name string, kind SymbolKind, typ *types.PType, attr Attribute) (*SymbolEntry, error) {
	current := m.CurrentTable()
	if current.Lookup(name) != nil {
		return nil, ErrSymbolExists
	}
	if kind.IsVariable() {
		for _, t := range m.tables {
			if entry := t.Lookup(name); entry != nil && entry.Kind == KindLoopVar {
				return nil, ErrSymbolExists
			}
		}
	}

	entry := &SymbolEntry{
		Name:      name,
		Kind:      kind,
		Level:     m.CurrentLevel(),
		Type:      typ,
		Attribute: attr,
	}
	if entry.Level > 0 && kind.IsVariable() {
		entry.Offset = m.allocate(entry)
	}
	current.add(entry)
	return entry, nil
}

// allocate reserves frame space for a local. Arrays declared in this frame
// take one word per element and their offset is the lowest address; array
// parameters are passed by address and take one word.
func (m *SymbolManager) allocate(entry *SymbolEntry) int {
	size := wordSize
	if entry.Kind != KindParameter && entry.Type.Rank() > 0 {
		size = wordSize * int(entry.Type.ElementCount())
		if size == 0 {
			size = wordSize
		}
	}
	offset := m.localOffset - size + wordSize
	m.localOffset -= size
	return offset
}

// ResetLocalOffset starts a new frame.
func (m *SymbolManager) ResetLocalOffset() {
	m.localOffset = firstLocalOffset
}

// NewLabel returns a label number never returned before.
func (m *SymbolManager) NewLabel() int {
	label := m.nextLabel
	m.nextLabel++
	return label
}
