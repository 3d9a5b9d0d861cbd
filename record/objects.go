package record

import "github.com/arloliu/dwgkit/format"

// DictionaryEntry is one named value of a dictionary.
type DictionaryEntry struct {
	Name  string
	Value Record
}

// Dictionary maps names to records. The root dictionary is owned by no one.
type Dictionary struct {
	Object

	CloningFlags int16
	HardOwner    bool
	Entries      []DictionaryEntry
}

func (*Dictionary) Type() format.ObjectType { return format.ObjectDictionary }

// Lookup returns the value stored under name.
func (d *Dictionary) Lookup(name string) (Record, bool) {
	for _, e := range d.Entries {
		if e.Name == name {
			return e.Value, true
		}
	}

	return nil, false
}

// Set replaces the value under name or appends a new entry.
func (d *Dictionary) Set(name string, value Record) {
	for i := range d.Entries {
		if d.Entries[i].Name == name {
			d.Entries[i].Value = value
			return
		}
	}
	d.Entries = append(d.Entries, DictionaryEntry{Name: name, Value: value})
}
