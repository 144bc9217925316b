package webmap

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/internal/observation"
	"github.com/sirupsen/logrus"
)

// PopupSection is one attribute table inside a marker popup
type PopupSection struct {
	Label   string
	Columns []string
	Rows    [][]PopupCell
}

// PopupCell is one rendered table cell, optionally colored
type PopupCell struct {
	Text  string
	Color string
}

// PopupImage is one outcrop image reference inside a marker popup. The
// first images are shown inline, later ones collapse into plain links.
type PopupImage struct {
	Path    string
	Caption string
	Label   string
	Inline  bool
}

// PopupData collects everything the popup template renders for one
// observation
type PopupData struct {
	ObsID     string
	Sections  []PopupSection
	Remarks   string
	HasImages bool
	Images    []PopupImage
}

const popupTemplateText = `<h3>{{.ObsID}}</h3>
{{range .Sections}}<h4>{{.Label}}</h4>
<table>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}{{if .Color}}<td style="color: {{.Color}}">{{.Text}}</td>{{else}}<td>{{.Text}}</td>{{end}}{{end}}</tr>
{{end}}</tbody>
</table>
{{end}}<h4>Observation remarks</h4>
<p>{{.Remarks}}</p>
{{if .HasImages}}<h4>Images</h4>
{{range .Images}}{{if .Inline}}<a href="{{.Path}}"><img height="150" src="{{.Path}}" alt="{{.Caption}}"/></a>
{{else}}<a href="{{.Path}}">{{.Label}}</a>
{{end}}{{end}}{{end}}`

var popupTemplate = template.Must(template.New("popup").Parse(popupTemplateText))

// PopupHTML renders the popup body for one observation
func PopupHTML(obs observation.Observation, images *ImageIndex, logger *logrus.Logger) (string, error) {
	data := PopupData{
		ObsID:     obs.ObsID,
		Sections:  popupSections(obs),
		Remarks:   obs.Remarks,
		HasImages: !obs.Images.Empty(),
		Images:    popupImages(obs, images, logger),
	}

	var buf bytes.Buffer
	if err := popupTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering popup for %s: %w", obs.ObsID, err)
	}
	return buf.String(), nil
}

// popupSections builds the attribute tables in display order. Remarks
// columns stay out of the popup, the observation remarks paragraph and the
// flat exports carry them.
func popupSections(obs observation.Observation) []PopupSection {
	parts := []struct {
		label string
		table observation.Table
	}{
		{"Planar Structures", obs.Planars},
		{"Linear Structures", obs.Linears},
		{"Rock Observations", obs.RockObservations},
		{"Samples", obs.Samples},
		{"Textures", obs.Textures},
		{"Minerals", obs.Minerals},
		{"Alterations", obs.Alterations},
	}

	var sections []PopupSection
	for _, part := range parts {
		if part.table.Empty() {
			continue
		}

		section := PopupSection{Label: part.label}
		for _, column := range part.table.Columns {
			if column == catalog.Remarks {
				continue
			}
			section.Columns = append(section.Columns, column)
		}

		for _, row := range part.table.Rows {
			cells := make([]PopupCell, 0, len(section.Columns))
			for _, column := range section.Columns {
				cell := PopupCell{Text: formatCell(row[column])}
				if column == catalog.Dip {
					if dip, ok := observation.FloatValue(row, column); ok {
						cell.Color = dipColor(dip)
					}
				}
				cells = append(cells, cell)
			}
			section.Rows = append(section.Rows, cells)
		}
		sections = append(sections, section)
	}
	return sections
}

// popupImages resolves the picture ids of an observation against the image
// directory. An id that does not match exactly one file collapses the whole
// list, the heading alone marks that images exist.
func popupImages(obs observation.Observation, images *ImageIndex, logger *logrus.Logger) []PopupImage {
	if images == nil || obs.Images.Empty() {
		return nil
	}

	result := make([]PopupImage, 0, len(obs.Images.Rows))
	for idx, row := range obs.Images.Rows {
		imageID := observation.StringValue(row, catalog.PictureID)
		caption := observation.StringValue(row, catalog.Remarks)

		path, found := images.Match(imageID)
		if !found {
			logger.Errorf("No unique match for image id %s in %s", imageID, images.Dir)
			return nil
		}

		result = append(result, PopupImage{
			Path:    path,
			Caption: caption,
			Label:   fmt.Sprintf("%s: %s", imageID, caption),
			Inline:  idx < 2,
		})
	}
	return result
}

// dipColor colors dip readings by steepness
func dipColor(dip float64) string {
	color := "blue"
	if dip > 60 {
		color = "red"
	} else if dip > 30 {
		color = "green"
	}
	return color
}

func formatCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
