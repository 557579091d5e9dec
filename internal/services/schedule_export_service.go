package services

import (
	"context"
	"fmt"
	"io"

	"github.com/fablab/fablab-registration/internal/models"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/xuri/excelize/v2"
)

const (
	scheduleSheet = "Schedule"
	bookingsSheet = "Bookings"

	cellAvailable = "Available"
	cellBooked    = "Booked"
	cellClosed    = "Closed"
)

// ScheduleExportService renders a day's schedule as an Excel workbook:
// a slot-by-section grid plus a sheet listing the day's bookings.
type ScheduleExportService struct {
	availability     *AvailabilityService
	registrationRepo *repositories.RegistrationRepository
}

func NewScheduleExportService(availability *AvailabilityService, registrationRepo *repositories.RegistrationRepository) *ScheduleExportService {
	return &ScheduleExportService{
		availability:     availability,
		registrationRepo: registrationRepo,
	}
}

// ExportDay writes the workbook for date to w.
func (s *ScheduleExportService) ExportDay(ctx context.Context, date string, w io.Writer) error {
	if !models.IsValidDate(date) {
		return errInvalidDate("date", date)
	}

	file := excelize.NewFile()
	defer file.Close()

	header, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}

	days := make([]*DaySchedule, 0, len(models.AllSections))
	for _, section := range models.AllSections {
		day, err := s.availability.GetDaySchedule(ctx, section, date)
		if err != nil {
			return err
		}
		days = append(days, day)
	}

	if err := file.SetSheetName("Sheet1", scheduleSheet); err != nil {
		return fmt.Errorf("error naming sheet %s: %w", scheduleSheet, err)
	}
	if err := writeRows(file, scheduleSheet, gridRows(days), header); err != nil {
		return err
	}

	registrations, err := s.registrationRepo.List(ctx, repositories.RegistrationFilter{Date: date, Limit: 1000})
	if err != nil {
		return fmt.Errorf("error loading registrations for export: %w", err)
	}
	if _, err := file.NewSheet(bookingsSheet); err != nil {
		return fmt.Errorf("error creating sheet %s: %w", bookingsSheet, err)
	}
	rows := [][]interface{}{{"Registration ID", "Section", "Status", "Schedule", "Name", "Email", "Phone", "Application type"}}
	for _, reg := range registrations {
		row := []interface{}{reg.ID, string(reg.FablabSection), string(reg.Status), DescribeSchedule(reg.Schedule), "", "", "", string(reg.ApplicationType)}
		if reg.User != nil {
			row[4], row[5], row[6] = reg.User.Name, reg.User.Email, reg.User.Phone
		}
		rows = append(rows, row)
	}
	if err := writeRows(file, bookingsSheet, rows, header); err != nil {
		return err
	}

	return file.Write(w)
}

// gridRows lays the day out as one row per slot and one column per section.
// Working hours are shared by all sections, so every grid has the same times.
func gridRows(days []*DaySchedule) [][]interface{} {
	head := []interface{}{"Time"}
	for _, day := range days {
		head = append(head, string(day.Section))
	}
	rows := [][]interface{}{head}
	if len(days) == 0 {
		return rows
	}

	if !days[0].IsWorkingDay || len(days[0].Slots) == 0 {
		row := []interface{}{"-"}
		for range days {
			row = append(row, cellClosed)
		}
		return append(rows, row)
	}

	for i, slot := range days[0].Slots {
		row := []interface{}{slot.Time}
		for _, day := range days {
			row = append(row, slotCell(day, i))
		}
		rows = append(rows, row)
	}
	return rows
}

func writeRows(file *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("error writing row %d of %s: %w", r+1, sheet, err)
		}
	}
	if len(rows) > 0 {
		end, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return err
		}
		_ = file.SetCellStyle(sheet, "A1", end, headerStyle)
	}
	return nil
}

func slotCell(day *DaySchedule, i int) string {
	if day.Deactivation != nil {
		return cellClosed
	}
	if i >= len(day.Slots) {
		return ""
	}
	if day.Slots[i].Available {
		return cellAvailable
	}
	return cellBooked
}
