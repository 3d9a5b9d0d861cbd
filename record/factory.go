package record

import (
	"sync"

	"github.com/arloliu/dwgkit/format"
)

// Constructor creates an empty record.
type Constructor func() Record

// Factory creates placeholder records by object type code. Codes from the custom class range
// are looked up through the classes registered with RegisterClass.
//
// A Factory is safe for concurrent use.
type Factory struct {
	mu      sync.RWMutex
	byCode  map[format.ObjectType]Constructor
	byClass map[string]Constructor
	classes map[format.ObjectType]string
	shapes  map[format.ObjectType]struct{}
}

// NewFactory returns a factory that knows every record kind of this package.
func NewFactory() *Factory {
	f := &Factory{
		byCode:  make(map[format.ObjectType]Constructor),
		byClass: make(map[string]Constructor),
		classes: make(map[format.ObjectType]string),
		shapes:  make(map[format.ObjectType]struct{}),
	}

	f.Register(format.ObjectText, func() Record { return &Text{} })
	f.Register(format.ObjectBlock, func() Record { return &Block{} })
	f.Register(format.ObjectEndBlock, func() Record { return &EndBlock{} })
	f.Register(format.ObjectSeqEnd, func() Record { return &SeqEnd{} })
	f.Register(format.ObjectArc, func() Record { return &Arc{} })
	f.Register(format.ObjectCircle, func() Record { return &Circle{} })
	f.Register(format.ObjectLine, func() Record { return &Line{} })
	f.Register(format.ObjectPoint, func() Record { return &Point{} })
	f.Register(format.ObjectDictionary, func() Record { return &Dictionary{} })
	f.Register(format.ObjectBlockControl, func() Record { return NewBlockControl() })
	f.Register(format.ObjectBlockHeader, func() Record { return &BlockRecord{} })
	f.Register(format.ObjectLayerControl, func() Record { return NewLayerControl() })
	f.Register(format.ObjectLayer, func() Record { return &Layer{} })
	f.Register(format.ObjectStyleControl, func() Record { return NewStyleControl() })
	f.Register(format.ObjectStyle, func() Record { return &TextStyle{} })
	f.Register(format.ObjectLTypeControl, func() Record { return NewLineTypeControl() })
	f.Register(format.ObjectLType, func() Record { return &LineType{} })

	return f
}

// Register installs the constructor for a fixed type code. When code has a DXF name, the
// constructor also serves custom classes of that name.
func (f *Factory) Register(code format.ObjectType, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.byCode[code] = ctor
	f.byClass[code.String()] = ctor
}

// RegisterClass maps a custom class code to its DXF class name. entity marks classes whose
// records carry entity common data.
func (f *Factory) RegisterClass(code format.ObjectType, dxfName string, entity bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.classes == nil {
		f.classes = make(map[format.ObjectType]string)
		f.shapes = make(map[format.ObjectType]struct{})
	}
	f.classes[code] = dxfName
	if entity {
		f.shapes[code] = struct{}{}
	} else {
		delete(f.shapes, code)
	}
}

// IsEntity reports whether records of code carry entity common data. Fixed codes answer from
// the type itself, custom classes from their registration. A nil factory knows fixed codes only.
func (f *Factory) IsEntity(code format.ObjectType) bool {
	if !code.IsCustomClass() || f == nil {
		return code.IsGraphical()
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	_, ok := f.shapes[code]

	return ok
}

// ClassName returns the DXF name registered for a custom class code.
func (f *Factory) ClassName(code format.ObjectType) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	name, ok := f.classes[code]

	return name, ok
}

// New creates the placeholder record for code.
//
// Returns:
//   - Record: the empty record, or an *Unknown carrying code and class name
//   - bool: false when the code has no registered kind
func (f *Factory) New(code format.ObjectType) (Record, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if ctor, ok := f.byCode[code]; ok {
		return ctor(), true
	}
	if code.IsCustomClass() {
		name := f.classes[code]
		if ctor, ok := f.byClass[name]; ok {
			return ctor(), true
		}

		return &Unknown{Code: code, ClassName: name}, false
	}

	return &Unknown{Code: code}, false
}
