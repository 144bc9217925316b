package webmap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nialov/kapalo-go/internal/observation"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

// Overlay is an extra GeoJSON dataset stacked onto the webmap
type Overlay struct {
	Name        string
	Collection  *geojson.FeatureCollection
	Style       map[string]interface{}
	PopupFields []string
}

// LineamentStyle is the default style for line datasets such as traced
// lineaments
func LineamentStyle(color string) map[string]interface{} {
	style := map[string]interface{}{
		"color":  "black",
		"weight": "1",
	}
	return AddColor(style, color)
}

// BedrockStyle is the default style for polygon datasets such as bedrock
// unit maps
func BedrockStyle(color string) map[string]interface{} {
	style := map[string]interface{}{
		"strokeColor": "blue",
		"fillOpacity": 0.0,
		"weight":      0.5,
	}
	return AddColor(style, color)
}

// AddColor overrides every color-like key of a style with the given color.
// An empty color keeps the style as is.
func AddColor(style map[string]interface{}, color string) map[string]interface{} {
	if color == "" {
		return style
	}
	styled := make(map[string]interface{}, len(style))
	for key, value := range style {
		if strings.Contains(strings.ToLower(key), "color") {
			styled[key] = color
		} else {
			styled[key] = value
		}
	}
	return styled
}

// LoadExtras reads the extra datasets named in the map config
func LoadExtras(extras []observation.ExtraDataset, logger *logrus.Logger) ([]Overlay, error) {
	overlays := make([]Overlay, 0, len(extras))
	for _, extra := range extras {
		content, err := os.ReadFile(extra.Path)
		if err != nil {
			return nil, fmt.Errorf("reading extra dataset %s: %w", extra.Path, err)
		}
		collection, err := geojson.UnmarshalFeatureCollection(content)
		if err != nil {
			return nil, fmt.Errorf("parsing extra dataset %s: %w", extra.Path, err)
		}

		name := extra.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(extra.Path), filepath.Ext(extra.Path))
		}

		overlays = append(overlays, Overlay{
			Name:        name,
			Collection:  collection,
			Style:       overlayStyle(extra.Style, extra.Color),
			PopupFields: extra.PopupFields,
		})
		logger.Infof("Loaded extra dataset %s with %d features", name, len(collection.Features))
	}
	return overlays, nil
}

func overlayStyle(style, color string) map[string]interface{} {
	switch style {
	case "bedrock":
		return BedrockStyle(color)
	default:
		return LineamentStyle(color)
	}
}
