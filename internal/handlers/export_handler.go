package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

const exportPageSize = 500

type ExportHandler struct {
	catalog repository.CatalogRepositoryInterface
}

func NewExportHandler(catalog repository.CatalogRepositoryInterface) *ExportHandler {
	return &ExportHandler{catalog: catalog}
}

// ExportProducts streams the catalog as an Excel workbook
// @Summary Export products
// @Description Download the full catalog as an .xlsx file
// @Tags Products
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Failure 500 {object} models.ErrorResponse
// @Router /products/export [get]
func (h *ExportHandler) ExportProducts(c *gin.Context) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Products"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Name", "Handle", "Category", "Vendor", "Price", "Compare At Price", "Tags", "Bestseller Score", "Source Domain"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	f.SetCellStyle(sheet, "A1", "J1", headerStyle)

	row := 2
	for page := 1; ; page++ {
		products, err := h.catalog.GetProducts(c.Request.Context(), page, exportPageSize)
		if err != nil {
			fetchFailed(c, err)
			return
		}
		if len(products) == 0 {
			break
		}
		for _, p := range products {
			writeProductRow(f, sheet, row, p)
			row++
		}
		if len(products) < exportPageSize {
			break
		}
	}

	filename := fmt.Sprintf("products-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

func writeProductRow(f *excelize.File, sheet string, row int, p models.Product) {
	set := func(col int, value interface{}) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		f.SetCellValue(sheet, cell, value)
	}

	set(1, p.ID)
	set(2, p.Name)
	set(3, p.Handle)
	set(4, p.Category)
	set(5, p.Vendor)
	set(6, p.Price)
	if p.CompareAtPrice != nil {
		set(7, *p.CompareAtPrice)
	}
	set(8, strings.TrimSpace(p.Tags))
	if p.BestsellerScore != nil {
		set(9, *p.BestsellerScore)
	}
	set(10, p.SourceDomain)
}
