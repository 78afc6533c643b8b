package repository

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

type identKind uint8

const (
	identByID identKind = iota + 1
	identByName
)

// Identifier addresses a user or role either by numeric id or by name.
// Construct it with ByID, ByName or ParseIdentifier.
type Identifier struct {
	kind identKind
	id   uint
	name string
}

// ByID identifies a record by primary key.
func ByID(id uint) Identifier { return Identifier{kind: identByID, id: id} }

// ByName identifies a record by its unique name.
func ByName(name string) Identifier { return Identifier{kind: identByName, name: name} }

// ParseIdentifier turns a path segment into an Identifier: a positive
// integer addresses an id, anything else a name.
func ParseIdentifier(s string) Identifier {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 64); err == nil && n > 0 {
		return ByID(uint(n))
	}
	return ByName(s)
}

// ID returns the id and whether the identifier is id-based.
func (i Identifier) ID() (uint, bool) { return i.id, i.kind == identByID }

// Name returns the name and whether the identifier is name-based.
func (i Identifier) Name() (string, bool) { return i.name, i.kind == identByName }

// Valid reports whether the identifier can match anything at all.
func (i Identifier) Valid() bool {
	switch i.kind {
	case identByID:
		return i.id > 0
	case identByName:
		return i.name != ""
	}
	return false
}

func (i Identifier) String() string {
	if i.kind == identByID {
		return "#" + strconv.FormatUint(uint64(i.id), 10)
	}
	return i.name
}

// where restricts a query to the identified row.
func (i Identifier) where(db *gorm.DB) *gorm.DB {
	switch i.kind {
	case identByID:
		return db.Where("id = ?", i.id)
	case identByName:
		return db.Where("name = ?", i.name)
	}
	// zero Identifier matches nothing
	return db.Where("1 = 0")
}

// lowered returns a copy with the name lowercased; user names are stored
// in lowercase.
func (i Identifier) lowered() Identifier {
	if i.kind == identByName {
		i.name = strings.ToLower(i.name)
	}
	return i
}
