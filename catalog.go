package pagedb

// Catalog is the directory of tables the buffer pool consults to resolve
// a PageId's table id to the backing HeapFile. It is not expected to be
// mutated concurrently with query execution.

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

type tableEntry struct {
	file    *HeapFile
	name    string
	primary string
}

// Catalog maps table ids and names to their backing HeapFile.
type Catalog struct {
	byId   map[uint32]*tableEntry
	byName map[string]*tableEntry
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byId:   make(map[uint32]*tableEntry),
		byName: make(map[string]*tableEntry),
	}
}

// AddTable registers file under name, with primaryKey naming its primary
// key field (empty if none). Any existing entry sharing the same id or
// the same name is replaced.
func (c *Catalog) AddTable(name string, file *HeapFile, primaryKey string) {
	for id, e := range c.byId {
		if id == file.Id() || e.name == name {
			delete(c.byId, id)
			delete(c.byName, e.name)
		}
	}
	e := &tableEntry{file: file, name: name, primary: primaryKey}
	c.byId[file.Id()] = e
	c.byName[name] = e
}

// FileForId returns the HeapFile registered under id.
func (c *Catalog) FileForId(id uint32) (*HeapFile, error) {
	e, ok := c.byId[id]
	if !ok {
		return nil, NoSuchTableError.New("no table with id %d", id)
	}
	return e.file, nil
}

// FileForName returns the HeapFile registered under name.
func (c *Catalog) FileForName(name string) (*HeapFile, error) {
	e, ok := c.byName[name]
	if !ok {
		return nil, NoSuchTableError.New("no table named %q", name)
	}
	return e.file, nil
}

// PrimaryKey returns the primary key field name registered for name, which
// may be empty if the table has none.
func (c *Catalog) PrimaryKey(name string) (string, error) {
	e, ok := c.byName[name]
	if !ok {
		return "", NoSuchTableError.New("no table named %q", name)
	}
	return e.primary, nil
}

// LoadSchema parses the text catalog format — one line per table,
// "tablename (field1 type1 [pk], field2 type2, ...)" — resolving each
// table's data file as "<catalogDir>/<tablename>.dat" and opening it
// through bp. Lines are skipped if blank after trimming.
func (c *Catalog) LoadSchema(r io.Reader, catalogDir string, bp *BufferPool) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := c.loadSchemaLine(line, catalogDir, bp); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return IoError.Wrap(err)
	}
	return nil
}

func (c *Catalog) loadSchemaLine(line, catalogDir string, bp *BufferPool) error {
	open := strings.Index(line, "(")
	closeParen := strings.LastIndex(line, ")")
	if open < 0 || closeParen < open {
		return DbError.New("malformed catalog line: %q", line)
	}
	tableName := strings.TrimSpace(line[:open])
	if tableName == "" {
		return DbError.New("malformed catalog line, missing table name: %q", line)
	}

	var types []DBType
	var names []string
	primary := ""
	for _, rawField := range strings.Split(line[open+1:closeParen], ",") {
		parts := strings.Fields(strings.TrimSpace(rawField))
		if len(parts) < 2 {
			return DbError.New("malformed field spec %q in table %q", rawField, tableName)
		}
		name := parts[0]
		var t DBType
		switch strings.ToLower(parts[1]) {
		case "int":
			t = IntType
		case "string":
			t = StringType
		default:
			return DbError.New("unknown field type %q for field %q", parts[1], name)
		}
		if len(parts) >= 3 && strings.EqualFold(parts[2], "pk") {
			primary = name
		}
		names = append(names, name)
		types = append(types, t)
	}

	desc := NewTupleDesc(types, names)
	dataFile := filepath.Join(catalogDir, tableName+".dat")
	hf, err := NewHeapFile(dataFile, desc, bp)
	if err != nil {
		return err
	}
	c.AddTable(tableName, hf, primary)
	return nil
}

func (c *Catalog) String() string {
	var sb strings.Builder
	for name, e := range c.byName {
		fmt.Fprintf(&sb, "%s: %s\n", name, e.file.Schema())
	}
	return sb.String()
}
