package webmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/internal/observation"
	"github.com/sirupsen/logrus"
)

// MapBuildError reports an observation that could not be placed on the map
type MapBuildError struct {
	ObsID  string
	Reason string
}

func (e *MapBuildError) Error() string {
	return fmt.Sprintf("observation %s: %s", e.ObsID, e.Reason)
}

// Marker is one observation rendered onto the Leaflet map
type Marker struct {
	ObsID     string  `json:"obsId"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Icon      string  `json:"icon"`
	Color     string  `json:"color"`
	Angle     float64 `json:"angle"`
	Tooltip   string  `json:"tooltip"`
	Popup     string  `json:"popup"`
}

// Marker icons and colors. Observations with linear structures show an
// arrow rotated to the first measured direction, the rest show a square.
// Recheck candidates turn red in either case.
const (
	ArrowIcon    = "glyphicon-arrow-up"
	SquareIcon   = "glyphicon-stop"
	DefaultColor = "blue"
	PassiveColor = "lightgray"
	RecheckColor = "red"
)

// MapBuilder compiles assembled observations into a Leaflet webmap bundle
type MapBuilder struct {
	Config observation.MapConfig
	Images *ImageIndex
	Logger *logrus.Logger
}

// NewMapBuilder creates a MapBuilder. The image index may be nil when no
// image directory is available, popups then link no images.
func NewMapBuilder(config observation.MapConfig, images *ImageIndex, logger *logrus.Logger) *MapBuilder {
	return &MapBuilder{
		Config: config,
		Images: images,
		Logger: logger,
	}
}

// BuildMarker renders one observation into a marker
func (mb *MapBuilder) BuildMarker(obs observation.Observation) (Marker, error) {
	latitude, longitude, err := MarkerLocation(obs)
	if err != nil {
		return Marker{}, err
	}

	marker := Marker{
		ObsID:     obs.ObsID,
		Latitude:  latitude,
		Longitude: longitude,
		Icon:      SquareIcon,
		Color:     PassiveColor,
		Tooltip:   obs.ObsID,
	}
	if !obs.Linears.Empty() {
		marker.Icon = ArrowIcon
		marker.Color = DefaultColor
		if direction, ok := observation.FloatValue(obs.Linears.Rows[0], catalog.Direction); ok {
			marker.Angle = direction
		}
	}
	if mb.Config.IsRecheck(obs.ObsID) {
		marker.Color = RecheckColor
	}

	popup, err := PopupHTML(obs, mb.Images, mb.Logger)
	if err != nil {
		return Marker{}, err
	}
	marker.Popup = popup
	return marker, nil
}

// BuildMarkers renders every observation, skipping duplicate ids and
// records without usable geometry. Skipped records stay in the tabular
// exports, only the map placement is affected.
func (mb *MapBuilder) BuildMarkers(observations []observation.Observation) ([]Marker, int) {
	markers := make([]Marker, 0, len(observations))
	seen := make(map[string]bool, len(observations))
	skipped := 0

	for _, obs := range observations {
		if seen[obs.ObsID] {
			mb.Logger.Errorf("Duplicate observation id %s. Skipping.", obs.ObsID)
			skipped++
			continue
		}
		seen[obs.ObsID] = true

		marker, err := mb.BuildMarker(obs)
		if err != nil {
			mb.Logger.Errorf("Could not place observation on map: %s", err)
			skipped++
			continue
		}
		markers = append(markers, marker)
	}
	return markers, skipped
}

type overlayData struct {
	Name        string
	Data        template.JS
	Style       template.JS
	PopupFields template.JS
}

type mapTemplateData struct {
	Title     string
	CenterLat float64
	CenterLon float64
	Markers   template.JS
	Overlays  []overlayData
}

const mapTemplateText = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1.0"/>
    <title>{{.Title}}</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/leaflet@1.6.0/dist/leaflet.css"/>
    <link rel="stylesheet" href="https://maxcdn.bootstrapcdn.com/bootstrap/3.2.0/css/bootstrap.min.css"/>
    <link rel="stylesheet" href="https://cdnjs.cloudflare.com/ajax/libs/Leaflet.awesome-markers/2.0.2/leaflet.awesome-markers.css"/>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/leaflet.locatecontrol@0.74.0/dist/L.Control.Locate.min.css"/>
    <script src="https://cdn.jsdelivr.net/npm/leaflet@1.6.0/dist/leaflet.js"></script>
    <script src="https://code.jquery.com/jquery-1.12.4.min.js"></script>
    <script src="https://maxcdn.bootstrapcdn.com/bootstrap/3.2.0/js/bootstrap.min.js"></script>
    <script src="https://cdnjs.cloudflare.com/ajax/libs/Leaflet.awesome-markers/2.0.2/leaflet.awesome-markers.js"></script>
    <script src="https://cdn.jsdelivr.net/npm/leaflet.locatecontrol@0.74.0/dist/L.Control.Locate.min.js"></script>
    <style>
        html, body, #map { height: 100%; width: 100%; margin: 0; }
    </style>
</head>
<body>
    <div id="map"></div>
    <script>
    var map = L.map("map").setView([{{.CenterLat}}, {{.CenterLon}}], 10);
    L.tileLayer("https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png", {
        attribution: "&copy; OpenStreetMap contributors",
        maxZoom: 19
    }).addTo(map);
    var overlayLayers = {};
{{range .Overlays}}
    overlayLayers["{{.Name}}"] = L.geoJson({{.Data}}, {
        style: function () { return {{.Style}}; },
        onEachFeature: function (feature, layer) {
            var fields = {{.PopupFields}};
            if (!fields || fields.length === 0 || !feature.properties) { return; }
            var parts = [];
            fields.forEach(function (field) {
                if (feature.properties[field] !== undefined) {
                    parts.push("<b>" + field + "</b>: " + feature.properties[field]);
                }
            });
            if (parts.length > 0) { layer.bindPopup(parts.join("<br/>")); }
        }
    }).addTo(map);
{{end}}{{if .Overlays}}
    L.control.layers(null, overlayLayers).addTo(map);
{{end}}
    var markers = {{.Markers}};
    markers.forEach(function (m) {
        var icon = L.AwesomeMarkers.icon({
            icon: m.icon.replace("glyphicon-", ""),
            prefix: "glyphicon",
            markerColor: m.color
        });
        var marker = L.marker([m.lat, m.lon], {icon: icon});
        marker.bindTooltip(m.tooltip);
        marker.bindPopup(m.popup, {maxWidth: 400});
        marker.addTo(map);
        if (m.angle !== 0) {
            var element = marker.getElement();
            if (element) {
                var glyph = element.querySelector("i");
                if (glyph) { glyph.style.transform = "rotate(" + m.angle + "deg)"; }
            }
        }
    });

    L.control.locate({
        locateOptions: {enableHighAccuracy: true, watch: true, timeout: 100000}
    }).addTo(map);
    </script>
</body>
</html>`

var mapTemplate = template.Must(template.New("webmap").Parse(mapTemplateText))

// RenderMap renders the full Leaflet document with the markers and extra
// overlays embedded as JSON
func (mb *MapBuilder) RenderMap(markers []Marker, overlays []Overlay, centerLat, centerLon float64) (string, error) {
	markerJSON, err := json.Marshal(markers)
	if err != nil {
		return "", fmt.Errorf("encoding markers: %w", err)
	}

	data := mapTemplateData{
		Title:     "kapalo webmap",
		CenterLat: centerLat,
		CenterLon: centerLon,
		Markers:   template.JS(markerJSON),
	}
	for _, overlay := range overlays {
		collectionJSON, err := overlay.Collection.MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("encoding overlay %s: %w", overlay.Name, err)
		}
		styleJSON, err := json.Marshal(overlay.Style)
		if err != nil {
			return "", fmt.Errorf("encoding overlay style %s: %w", overlay.Name, err)
		}
		fieldsJSON, err := json.Marshal(overlay.PopupFields)
		if err != nil {
			return "", fmt.Errorf("encoding overlay popup fields %s: %w", overlay.Name, err)
		}
		data.Overlays = append(data.Overlays, overlayData{
			Name:        overlay.Name,
			Data:        template.JS(collectionJSON),
			Style:       template.JS(styleJSON),
			PopupFields: template.JS(fieldsJSON),
		})
	}

	var buf bytes.Buffer
	if err := mapTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering map: %w", err)
	}
	return buf.String(), nil
}

// StylesheetName is the css file written next to the map html
const StylesheetName = "styles.css"

// defaultStylesheet keeps the popup tables readable when no custom css is
// configured
const defaultStylesheet = `table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 2px 6px; }
h3, h4 { margin: 4px 0; }
img { max-width: 100%; }
`

// WriteMap writes the rendered html and its stylesheet next to each other.
// Absolute image references are rewritten to the image directory base name
// so the bundle can be moved and served as one unit.
func (mb *MapBuilder) WriteMap(html, path, imgsDir, stylesheet string) error {
	if imgsDir != "" {
		html = strings.ReplaceAll(html, imgsDir, filepath.Base(imgsDir))
	}
	styled, err := addLocalStylesheet(html, StylesheetName)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(styled), 0o644); err != nil {
		return fmt.Errorf("writing map html: %w", err)
	}

	content := []byte(defaultStylesheet)
	if stylesheet != "" {
		content, err = os.ReadFile(stylesheet)
		if err != nil {
			return fmt.Errorf("reading stylesheet %s: %w", stylesheet, err)
		}
	}
	stylePath := filepath.Join(filepath.Dir(path), StylesheetName)
	if err := os.WriteFile(stylePath, content, 0o644); err != nil {
		return fmt.Errorf("writing stylesheet: %w", err)
	}
	return nil
}

// addLocalStylesheet inserts a local stylesheet link after the last remote
// stylesheet reference so it wins the cascade
func addLocalStylesheet(html, name string) (string, error) {
	lines := strings.Split(html, "\n")
	last := -1
	for idx, line := range lines {
		if strings.Contains(line, "stylesheet") {
			last = idx
		}
	}
	if last < 0 {
		return "", fmt.Errorf("no stylesheet line in rendered html")
	}

	reference := fmt.Sprintf(`    <link rel="stylesheet" href="%s"/>`, name)
	inserted := append([]string{}, lines[:last+1]...)
	inserted = append(inserted, reference)
	inserted = append(inserted, lines[last+1:]...)
	return strings.Join(inserted, "\n"), nil
}

// Compile builds the whole webmap bundle from assembled observations:
// markers, extra overlays, the html document and its stylesheet. Returns
// how many markers were placed and how many observations were skipped.
func (mb *MapBuilder) Compile(observations []observation.Observation, outPath, imgsDir, stylesheet string) (placed, skipped int, err error) {
	markers, skipped := mb.BuildMarkers(observations)
	if len(markers) == 0 {
		return 0, skipped, fmt.Errorf("no observations could be placed on the map")
	}

	centerLat, centerLon := markerCentroid(markers)
	overlays, err := LoadExtras(mb.Config.Extras, mb.Logger)
	if err != nil {
		return 0, skipped, err
	}
	html, err := mb.RenderMap(markers, overlays, centerLat, centerLon)
	if err != nil {
		return 0, skipped, err
	}
	if err := mb.WriteMap(html, outPath, imgsDir, stylesheet); err != nil {
		return 0, skipped, err
	}

	mb.Logger.Infof("Compiled webmap with %d markers: %s", len(markers), outPath)
	return len(markers), skipped, nil
}

// markerCentroid is the mean marker location the map view starts on
func markerCentroid(markers []Marker) (latitude, longitude float64) {
	var latSum, lonSum float64
	for _, marker := range markers {
		latSum += marker.Latitude
		lonSum += marker.Longitude
	}
	n := float64(len(markers))
	return latSum / n, lonSum / n
}
