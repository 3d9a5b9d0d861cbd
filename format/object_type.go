package format

import "fmt"

// ObjectType is the type code stored at the start of every object record.
type ObjectType uint16

const (
	ObjectUnused           ObjectType = 0x00
	ObjectText             ObjectType = 0x01
	ObjectAttrib           ObjectType = 0x02
	ObjectAttdef           ObjectType = 0x03
	ObjectBlock            ObjectType = 0x04
	ObjectEndBlock         ObjectType = 0x05
	ObjectSeqEnd           ObjectType = 0x06
	ObjectInsert           ObjectType = 0x07
	ObjectMInsert          ObjectType = 0x08
	ObjectVertex2D         ObjectType = 0x0A
	ObjectVertex3D         ObjectType = 0x0B
	ObjectPolyline2D       ObjectType = 0x0F
	ObjectPolyline3D       ObjectType = 0x10
	ObjectArc              ObjectType = 0x11
	ObjectCircle           ObjectType = 0x12
	ObjectLine             ObjectType = 0x13
	ObjectPoint            ObjectType = 0x1B
	ObjectFace3D           ObjectType = 0x1C
	ObjectSolid            ObjectType = 0x1F
	ObjectViewport         ObjectType = 0x22
	ObjectEllipse          ObjectType = 0x23
	ObjectSpline           ObjectType = 0x24
	ObjectRay              ObjectType = 0x28
	ObjectXLine            ObjectType = 0x29
	ObjectDictionary       ObjectType = 0x2A
	ObjectMText            ObjectType = 0x2C
	ObjectBlockControl     ObjectType = 0x30
	ObjectBlockHeader      ObjectType = 0x31
	ObjectLayerControl     ObjectType = 0x32
	ObjectLayer            ObjectType = 0x33
	ObjectStyleControl     ObjectType = 0x34
	ObjectStyle            ObjectType = 0x35
	ObjectLTypeControl     ObjectType = 0x38
	ObjectLType            ObjectType = 0x39
	ObjectViewControl      ObjectType = 0x3C
	ObjectView             ObjectType = 0x3D
	ObjectUCSControl       ObjectType = 0x3E
	ObjectUCS              ObjectType = 0x3F
	ObjectVPortControl     ObjectType = 0x40
	ObjectVPort            ObjectType = 0x41
	ObjectAppIDControl     ObjectType = 0x42
	ObjectAppID            ObjectType = 0x43
	ObjectDimStyleControl  ObjectType = 0x44
	ObjectDimStyle         ObjectType = 0x45
	ObjectVPEntHdrControl  ObjectType = 0x46
	ObjectVPEntHdr         ObjectType = 0x47
	ObjectGroup            ObjectType = 0x48
	ObjectMLineStyle       ObjectType = 0x49
	ObjectLWPolyline       ObjectType = 0x4D
	ObjectHatch            ObjectType = 0x4E
	ObjectXRecord          ObjectType = 0x4F
	ObjectPlaceholder      ObjectType = 0x50
	ObjectLayout           ObjectType = 0x52
	ObjectCustomClassStart ObjectType = 0x1F4
)

var objectTypeNames = map[ObjectType]string{
	ObjectUnused:          "UNUSED",
	ObjectText:            "TEXT",
	ObjectAttrib:          "ATTRIB",
	ObjectAttdef:          "ATTDEF",
	ObjectBlock:           "BLOCK",
	ObjectEndBlock:        "ENDBLK",
	ObjectSeqEnd:          "SEQEND",
	ObjectInsert:          "INSERT",
	ObjectMInsert:         "MINSERT",
	ObjectVertex2D:        "VERTEX_2D",
	ObjectVertex3D:        "VERTEX_3D",
	ObjectPolyline2D:      "POLYLINE_2D",
	ObjectPolyline3D:      "POLYLINE_3D",
	ObjectArc:             "ARC",
	ObjectCircle:          "CIRCLE",
	ObjectLine:            "LINE",
	ObjectPoint:           "POINT",
	ObjectFace3D:          "3DFACE",
	ObjectSolid:           "SOLID",
	ObjectViewport:        "VIEWPORT",
	ObjectEllipse:         "ELLIPSE",
	ObjectSpline:          "SPLINE",
	ObjectRay:             "RAY",
	ObjectXLine:           "XLINE",
	ObjectDictionary:      "DICTIONARY",
	ObjectMText:           "MTEXT",
	ObjectBlockControl:    "BLOCK_CONTROL",
	ObjectBlockHeader:     "BLOCK_HEADER",
	ObjectLayerControl:    "LAYER_CONTROL",
	ObjectLayer:           "LAYER",
	ObjectStyleControl:    "STYLE_CONTROL",
	ObjectStyle:           "STYLE",
	ObjectLTypeControl:    "LTYPE_CONTROL",
	ObjectLType:           "LTYPE",
	ObjectViewControl:     "VIEW_CONTROL",
	ObjectView:            "VIEW",
	ObjectUCSControl:      "UCS_CONTROL",
	ObjectUCS:             "UCS",
	ObjectVPortControl:    "VPORT_CONTROL",
	ObjectVPort:           "VPORT",
	ObjectAppIDControl:    "APPID_CONTROL",
	ObjectAppID:           "APPID",
	ObjectDimStyleControl: "DIMSTYLE_CONTROL",
	ObjectDimStyle:        "DIMSTYLE",
	ObjectVPEntHdrControl: "VP_ENT_HDR_CONTROL",
	ObjectVPEntHdr:        "VP_ENT_HDR",
	ObjectGroup:           "GROUP",
	ObjectMLineStyle:      "MLINESTYLE",
	ObjectLWPolyline:      "LWPOLYLINE",
	ObjectHatch:           "HATCH",
	ObjectXRecord:         "XRECORD",
	ObjectPlaceholder:     "ACDBPLACEHOLDER",
	ObjectLayout:          "LAYOUT",
}

func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return name
	}
	if t >= ObjectCustomClassStart {
		return fmt.Sprintf("CLASS(%d)", uint16(t))
	}

	return fmt.Sprintf("TYPE(0x%X)", uint16(t))
}

// IsCustomClass reports whether the code refers to an entry in the classes section.
func (t ObjectType) IsCustomClass() bool {
	return t >= ObjectCustomClassStart
}

// IsGraphical reports whether objects of this fixed type carry entity common data.
func (t ObjectType) IsGraphical() bool {
	switch t {
	case ObjectText, ObjectAttrib, ObjectAttdef, ObjectBlock, ObjectEndBlock, ObjectSeqEnd,
		ObjectInsert, ObjectMInsert, ObjectVertex2D, ObjectVertex3D, ObjectPolyline2D,
		ObjectPolyline3D, ObjectArc, ObjectCircle, ObjectLine, ObjectPoint, ObjectFace3D,
		ObjectSolid, ObjectViewport, ObjectEllipse, ObjectSpline, ObjectRay, ObjectXLine,
		ObjectMText, ObjectLWPolyline, ObjectHatch:
		return true
	default:
		return false
	}
}
