package osm

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	paulosm "github.com/paulmach/osm"
)

// Format identifies an element document encoding
type Format string

const (
	FormatOverpassJSON Format = "json"
	FormatXML          Format = "xml"
)

// ParseFormat maps a user-provided format or file extension to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "json", "overpass":
		return FormatOverpassJSON, nil
	case "xml", "osm":
		return FormatXML, nil
	}
	return "", fmt.Errorf("unknown element format %q (expected json or xml)", s)
}

// Decode reads an element document in the given format
func Decode(r io.Reader, format Format) ([]Element, error) {
	switch format {
	case FormatOverpassJSON:
		return DecodeJSON(r)
	case FormatXML:
		return DecodeXML(r)
	}
	return nil, fmt.Errorf("unsupported element format %q", format)
}

// DecodeJSON reads an Overpass JSON response
func DecodeJSON(r io.Reader) ([]Element, error) {
	var resp Response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding overpass json: %w", err)
	}
	return resp.Elements, nil
}

// DecodeXML reads an OSM XML document (API or Overpass "out:xml")
func DecodeXML(r io.Reader) ([]Element, error) {
	var doc paulosm.OSM
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding osm xml: %w", err)
	}
	return FromOSM(&doc), nil
}

// FromOSM flattens a paulmach/osm document into elements
func FromOSM(doc *paulosm.OSM) []Element {
	elements := make([]Element, 0, len(doc.Nodes)+len(doc.Ways)+len(doc.Relations))

	for _, n := range doc.Nodes {
		elements = append(elements, Element{
			ID:   int64(n.ID),
			Type: TypeNode,
			Lat:  n.Lat,
			Lon:  n.Lon,
			Tags: tagMap(n.Tags),
		})
	}

	for _, w := range doc.Ways {
		ids := make([]int64, len(w.Nodes))
		for i, wn := range w.Nodes {
			ids[i] = int64(wn.ID)
		}
		elements = append(elements, Element{
			ID:    int64(w.ID),
			Type:  TypeWay,
			Tags:  tagMap(w.Tags),
			Nodes: ids,
		})
	}

	for _, rel := range doc.Relations {
		members := make([]Member, len(rel.Members))
		for i, m := range rel.Members {
			members[i] = Member{Type: string(m.Type), Ref: m.Ref, Role: m.Role}
		}
		elements = append(elements, Element{
			ID:      int64(rel.ID),
			Type:    TypeRelation,
			Tags:    tagMap(rel.Tags),
			Members: members,
		})
	}

	return elements
}

func tagMap(tags paulosm.Tags) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	return tags.Map()
}
