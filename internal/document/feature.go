package document

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/rohankatakam/featurekg/internal/errors"
	"github.com/rohankatakam/featurekg/internal/graph"
)

// RootElement is the root tag of a hierarchical feature document.
const RootElement = "StandardFeatureStructure"

// Attribute defaults applied when an attribute is absent from the document.
const (
	DefaultStructureNo = "1"

	DefaultFaceNo          = "0"
	DefaultFaceType        = "0"
	DefaultOutterLoopSize  = "1"
	DefaultInnerLoopSize   = "0"
	DefaultIsConvexSurface = "0"

	DefaultIsIntersection       = "1"
	DefaultIsParallel           = "0"
	DefaultIsVertical           = "1"
	DefaultIsConvexity          = "-1"
	DefaultSizeEdgeIntersection = "1"
	DefaultRelationShipType     = "1"
	DefaultFlagAngleDegree      = "1"
)

// FeatureDocument is StandardFeatureStructure -> Structure* -> FaceList, EdgeList.
type FeatureDocument struct {
	XMLName    xml.Name    `xml:"StandardFeatureStructure"`
	Structures []Structure `xml:"Structure"`
}

// Structure groups faces and the edges between them. Face numbers referenced
// by edges are scoped to the enclosing Structure.
type Structure struct {
	StructureNo          string    `xml:"StructureNo,attr"`
	StructureName        string    `xml:"StructureName,attr"`
	StructureEnglishName string    `xml:"StructureEnglishName,attr"`
	FaceList             FaceList  `xml:"FaceList"`
	EdgeList             *EdgeList `xml:"EdgeList"`
	RelationShipList     *EdgeList `xml:"RelationShipList"`
}

type FaceList struct {
	Faces []Face `xml:"Face"`
}

// EdgeList accepts both the current Edge children and legacy RelationShip
// children. Writers only ever fill Edges.
type EdgeList struct {
	Edges  []Edge `xml:"Edge"`
	Legacy []Edge `xml:"RelationShip"`
}

type Face struct {
	FaceNo          string `xml:"FaceNo,attr"`
	FaceType        string `xml:"FaceType,attr"`
	OutterLoopSize  string `xml:"OutterLoopSize,attr"`
	InnerLoopSize   string `xml:"InnerLoopSize,attr"`
	IsConvexSurface string `xml:"IsConvexSurface,attr"`
}

type Edge struct {
	SourceFaceNo         string `xml:"SourceFaceNo,attr"`
	TargetFaceNo         string `xml:"TargetFaceNo,attr"`
	IsIntersection       string `xml:"IsIntersection,attr"`
	IsParallel           string `xml:"IsParallel,attr"`
	IsVertical           string `xml:"IsVertical,attr"`
	IsConvexity          string `xml:"IsConvexity,attr"`
	SizeEdgeIntersection string `xml:"SizeEdgeIntersection,attr"`
	RelationShipType     string `xml:"RelationShipType,attr"`
	FlagAngleDegree      string `xml:"FlagAngleDegree,attr"`
}

// Edges returns the structure's edges. EdgeList wins over RelationShipList
// when both are present; inside a list, Edge children win over RelationShip.
func (s Structure) Edges() []Edge {
	list := s.EdgeList
	if list == nil {
		list = s.RelationShipList
	}
	if list == nil {
		return nil
	}
	if len(list.Edges) > 0 {
		return list.Edges
	}
	return list.Legacy
}

// Absent attributes keep the preset defaults: DecodeElement only overwrites
// attributes that are present.

func (s *Structure) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain Structure
	p := plain{StructureNo: DefaultStructureNo}
	if err := d.DecodeElement(&p, &start); err != nil {
		return err
	}
	*s = Structure(p)
	return nil
}

func (f *Face) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain Face
	p := plain{
		FaceNo:          DefaultFaceNo,
		FaceType:        DefaultFaceType,
		OutterLoopSize:  DefaultOutterLoopSize,
		InnerLoopSize:   DefaultInnerLoopSize,
		IsConvexSurface: DefaultIsConvexSurface,
	}
	if err := d.DecodeElement(&p, &start); err != nil {
		return err
	}
	*f = Face(p)
	return nil
}

func (e *Edge) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain Edge
	p := plain{
		IsIntersection:       DefaultIsIntersection,
		IsParallel:           DefaultIsParallel,
		IsVertical:           DefaultIsVertical,
		IsConvexity:          DefaultIsConvexity,
		SizeEdgeIntersection: DefaultSizeEdgeIntersection,
		RelationShipType:     DefaultRelationShipType,
		FlagAngleDegree:      DefaultFlagAngleDegree,
	}
	if err := d.DecodeElement(&p, &start); err != nil {
		return err
	}
	*e = Edge(p)
	return nil
}

// DecodeFeatureDocument parses a hierarchical document. Any syntax error,
// a root other than StandardFeatureStructure, or content after the root
// element is a parse error.
func DecodeFeatureDocument(r io.Reader) (*FeatureDocument, error) {
	var doc FeatureDocument
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.ParseError(err, "malformed feature document")
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return &doc, nil
}

// expectEOF allows only whitespace, comments and processing instructions
// after the root element.
func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.ParseError(err, "malformed feature document")
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return errors.ParseErrorf(nil, "junk after document element at offset %d", dec.InputOffset())
			}
		case xml.StartElement:
			return errors.ParseErrorf(nil, "junk after document element: <%s> at offset %d", t.Name.Local, dec.InputOffset())
		default:
			return errors.ParseErrorf(nil, "junk after document element at offset %d", dec.InputOffset())
		}
	}
}

// Encode writes the document with an XML header and four-space indentation.
func (doc *FeatureDocument) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// FaceKey is the content identity of an exported face. Two faces with equal
// keys are the same FaceList entry, whatever their graph ids.
type FaceKey struct {
	FaceNo          graph.Value
	FaceType        graph.Value
	OutterLoopSize  graph.Value
	InnerLoopSize   graph.Value
	IsConvexSurface graph.Value
}

// FaceKeyOf extracts the five face attributes from a Face node's properties.
func FaceKeyOf(props graph.Properties) FaceKey {
	return FaceKey{
		FaceNo:          props.Get("face_no"),
		FaceType:        props.Get("face_type"),
		OutterLoopSize:  props.Get("outter_loop_size"),
		InnerLoopSize:   props.Get("inner_loop_size"),
		IsConvexSurface: props.Get("is_convex_surface"),
	}
}

// Face renders the key as a document element. Null attributes render empty.
func (k FaceKey) Face() Face {
	return Face{
		FaceNo:          k.FaceNo.String(),
		FaceType:        k.FaceType.String(),
		OutterLoopSize:  k.OutterLoopSize.String(),
		InnerLoopSize:   k.InnerLoopSize.String(),
		IsConvexSurface: k.IsConvexSurface.String(),
	}
}

// EdgeOf renders a RELATIONSHIP edge between two faces.
func EdgeOf(source, target graph.Node, rel graph.Relationship) Edge {
	p := rel.Properties
	return Edge{
		SourceFaceNo:         source.Properties.Get("face_no").String(),
		TargetFaceNo:         target.Properties.Get("face_no").String(),
		IsIntersection:       p.Get("is_intersection").String(),
		IsParallel:           p.Get("is_parallel").String(),
		IsVertical:           p.Get("is_vertical").String(),
		IsConvexity:          p.Get("is_convexity").String(),
		SizeEdgeIntersection: p.Get("size_edge_intersection").String(),
		RelationShipType:     p.Get("relationship_type").String(),
		FlagAngleDegree:      p.Get("flag_angle_degree").String(),
	}
}
