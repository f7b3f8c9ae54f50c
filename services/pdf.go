package services

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/yeremiapane/restobook/models"
	"github.com/yeremiapane/restobook/utils"
)

// RenderRestaurantPDF writes a one-sheet A4 summary of the restaurant and its
// tables. Tables must be loaded on the restaurant.
func RenderRestaurantPDF(w io.Writer, restaurant *models.Restaurant) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Restaurant "+restaurant.Name, true)
	pdf.SetCreator("RestoBook", true)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Restaurant: "+restaurant.Name), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Cuisine: " + restaurant.CuisineType.Label(),
		"Address: " + restaurant.Address,
		"Phone: " + utils.FormatPhone(restaurant.Phone),
		"Opening hours: " + restaurant.OpeningHours,
	}
	if restaurant.Website != nil && *restaurant.Website != "" {
		lines = append(lines, "Website: "+*restaurant.Website)
	}
	for _, line := range lines {
		pdf.MultiCell(0, 7, tr(line), "", "L", false)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Tables", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)

	if len(restaurant.Tables) == 0 {
		pdf.CellFormat(0, 7, "No tables yet", "", 1, "L", false, 0, "")
	}
	for _, t := range restaurant.Tables {
		line := fmt.Sprintf("- Table %s: %d guests, %s per hour", t.TableNumber, t.Capacity, utils.FormatPrice(t.PricePerHour))
		pdf.CellFormat(0, 7, tr(line), "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render restaurant pdf: %w", err)
	}
	return nil
}
