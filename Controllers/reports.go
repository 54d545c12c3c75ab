package Controllers

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/wenjyue84/MakanManager-sub001/Models"
)

// ReportController exports the points leaderboard for management review.
type ReportController struct {
	DB *gorm.DB
}

func NewReportController(db *gorm.DB) *ReportController {
	return &ReportController{DB: db}
}

// Leaderboard writes the staff point standings to an Excel workbook.
func (c *ReportController) Leaderboard(ctx *fiber.Ctx) error {
	var users []Models.User
	if err := c.DB.Order("lifetime_points desc").Find(&users).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load users"})
	}

	buf, err := buildLeaderboard(users)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build report"})
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", `attachment; filename="leaderboard.xlsx"`)
	return ctx.Send(buf.Bytes())
}

func buildLeaderboard(users []Models.User) (*bytes.Buffer, error) {
	f := excelize.NewFile()

	sheetName := "Leaderboard"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Rank", "Name", "Station", "Weekly Points", "Monthly Points", "Lifetime Points"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6FA"},
			Pattern: 1,
		},
	})
	if err == nil {
		f.SetRowStyle(sheetName, 1, 1, headerStyle)
	}

	for rowIndex, user := range users {
		row := rowIndex + 2
		values := []interface{}{
			rowIndex + 1,
			user.Name,
			user.Station,
			user.WeeklyPoints,
			user.MonthlyPoints,
			user.LifetimePoints,
		}
		for colIndex, value := range values {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := 0; i < len(headers); i++ {
		f.SetColWidth(sheetName, string('A'+rune(i)), string('A'+rune(i)), 18)
	}

	if f.GetSheetName(0) != sheetName {
		f.DeleteSheet("Sheet1")
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing report to buffer: %v", err)
	}
	return &buf, nil
}
