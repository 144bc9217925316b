package webmap

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/internal/observation"
	"github.com/nialov/kapalo-go/pkg/models"
)

// popupObservation builds an assembled observation with enough children to
// exercise every popup section rule
func popupObservation() observation.Observation {
	return observation.Observation{
		ObsID:     "OBS1",
		Project:   "TEST",
		Latitude:  61.5,
		Longitude: 23.7,
		Remarks:   "outcrop on a road cut",
		Planars: observation.Table{
			Columns: []string{catalog.Dip, catalog.DipDirection, catalog.StypeText, catalog.Remarks},
			Rows: []models.Record{
				{catalog.Dip: 75.0, catalog.DipDirection: 200.0, catalog.StypeText: "Foliation", catalog.Remarks: "planar note"},
				{catalog.Dip: 45.0, catalog.DipDirection: 100.0, catalog.StypeText: "Joint", catalog.Remarks: nil},
				{catalog.Dip: 20.0, catalog.DipDirection: 310.0, catalog.StypeText: "Joint", catalog.Remarks: nil},
			},
		},
		Linears: observation.Table{
			Columns: []string{catalog.Direction, catalog.Plunge},
			Rows: []models.Record{
				{catalog.Direction: 20.0, catalog.Plunge: 30.0},
			},
		},
		Samples: observation.Table{
			Columns: []string{catalog.SampleID, catalog.RockName},
			Rows: []models.Record{
				{catalog.SampleID: "S1", catalog.RockName: "granite"},
			},
		},
	}
}

// writePopupImages creates image files matching the picture id naming
// convention of kapalo exports
func writePopupImages(t *testing.T, names ...string) *ImageIndex {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("jpg"), 0o644); err != nil {
			t.Fatalf("Failed to write image file %s: %s", path, err)
		}
	}
	return NewImageIndex(dir)
}

func TestPopupHTMLSections(t *testing.T) {
	logger := createTestLogger()
	obs := popupObservation()

	html, err := PopupHTML(obs, nil, logger)

	// Check the result
	if err != nil {
		t.Fatalf("Failed to render popup: %s", err)
	}
	if !strings.Contains(html, "<h3>OBS1</h3>") {
		t.Error("Expected the observation id heading in the popup")
	}
	for _, label := range []string{"Planar Structures", "Linear Structures", "Samples"} {
		if !strings.Contains(html, label) {
			t.Errorf("Expected section %s in the popup", label)
		}
	}
	for _, label := range []string{"Rock Observations", "Textures", "Minerals", "Alterations"} {
		if strings.Contains(html, label) {
			t.Errorf("Did not expect empty section %s in the popup", label)
		}
	}
	if !strings.Contains(html, "<th>DIP</th>") {
		t.Error("Expected the DIP column header in the popup")
	}
	if strings.Contains(html, "<th>REMARKS</th>") || strings.Contains(html, "planar note") {
		t.Error("Expected structure remarks to stay out of the popup tables")
	}
	if !strings.Contains(html, "<h4>Observation remarks</h4>") || !strings.Contains(html, "outcrop on a road cut") {
		t.Error("Expected the observation remarks paragraph in the popup")
	}
	if strings.Contains(html, "<h4>Images</h4>") {
		t.Error("Did not expect an image heading without images")
	}
}

func TestPopupHTMLDipColors(t *testing.T) {
	logger := createTestLogger()
	obs := popupObservation()

	html, err := PopupHTML(obs, nil, logger)

	// Check the result
	if err != nil {
		t.Fatalf("Failed to render popup: %s", err)
	}
	if !strings.Contains(html, `<td style="color: red">75</td>`) {
		t.Error("Expected a red cell for a dip over 60 degrees")
	}
	if !strings.Contains(html, `<td style="color: green">45</td>`) {
		t.Error("Expected a green cell for a dip over 30 degrees")
	}
	if !strings.Contains(html, `<td style="color: blue">20</td>`) {
		t.Error("Expected a blue cell for a gentle dip")
	}
}

func TestPopupHTMLImages(t *testing.T) {
	logger := createTestLogger()
	images := writePopupImages(t, "OBS1_P_0001.jpg", "OBS1_P_0002.jpg", "OBS1_P_0003.jpg")

	obs := popupObservation()
	obs.Images = observation.Table{
		Columns: []string{catalog.PictureID, catalog.Remarks},
		Rows: []models.Record{
			{catalog.PictureID: "P_0001", catalog.Remarks: "first caption"},
			{catalog.PictureID: "P_0002", catalog.Remarks: "second caption"},
			{catalog.PictureID: "P_0003", catalog.Remarks: "third caption"},
		},
	}

	html, err := PopupHTML(obs, images, logger)

	// Check the result
	if err != nil {
		t.Fatalf("Failed to render popup: %s", err)
	}
	if !strings.Contains(html, "<h4>Images</h4>") {
		t.Error("Expected an image heading")
	}
	if count := strings.Count(html, `<img height="150"`); count != 2 {
		t.Errorf("Expected 2 inline images, got %d", count)
	}
	if !strings.Contains(html, ">P_0003: third caption</a>") {
		t.Error("Expected the third image as a plain link")
	}
}

func TestPopupHTMLUnmatchedImageCollapses(t *testing.T) {
	logger := createTestLogger()
	images := writePopupImages(t, "OBS1_P_0001.jpg")

	obs := popupObservation()
	obs.Images = observation.Table{
		Columns: []string{catalog.PictureID, catalog.Remarks},
		Rows: []models.Record{
			{catalog.PictureID: "P_9999", catalog.Remarks: "missing"},
		},
	}

	html, err := PopupHTML(obs, images, logger)

	// Check the result
	if err != nil {
		t.Fatalf("Failed to render popup: %s", err)
	}
	if !strings.Contains(html, "<h4>Images</h4>") {
		t.Error("Expected the image heading to stay for an unmatched image")
	}
	if strings.Contains(html, "<img") || strings.Contains(html, "P_9999") {
		t.Error("Expected no image content for an unmatched image id")
	}
}

func TestDipColor(t *testing.T) {
	cases := []struct {
		dip      float64
		expected string
	}{
		{0.0, "blue"},
		{30.0, "blue"},
		{30.1, "green"},
		{60.0, "green"},
		{60.1, "red"},
		{90.0, "red"},
	}

	for _, c := range cases {
		if color := dipColor(c.dip); color != c.expected {
			t.Errorf("Expected %s for dip %f, got %s", c.expected, c.dip, color)
		}
	}
}

func TestFormatCell(t *testing.T) {
	cases := []struct {
		value    interface{}
		expected string
	}{
		{nil, ""},
		{"text", "text"},
		{int64(4), "4"},
		{45.5, "45.5"},
		{45.0, "45"},
		{[]byte("raw"), "raw"},
		{true, "true"},
	}

	for _, c := range cases {
		if formatted := formatCell(c.value); formatted != c.expected {
			t.Errorf("Expected %q for %v, got %q", c.expected, c.value, formatted)
		}
	}

	if formatted := formatCell(math.NaN()); formatted != "NaN" {
		t.Errorf("Expected NaN formatting, got %q", formatted)
	}
}
