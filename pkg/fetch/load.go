package fetch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/NERVsystems/osmterrain/pkg/osm"
)

// LoadElements reads an element file. The format follows the extension:
// .json for Overpass JSON, .osm or .xml for OSM XML.
func LoadElements(path string) ([]osm.Element, error) {
	format, err := osm.ParseFormat(filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening elements: %w", err)
	}
	defer f.Close()

	return osm.Decode(f, format)
}
