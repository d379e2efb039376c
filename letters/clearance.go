// Package letters renders printable documents for loan events.
package letters

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"github.com/warp/benefits-engine/loan"
)

// WriteClearancePDF renders the clearance certificate for a completed
// loan into dir and returns the file path. The loan must already carry
// a clearance record (see Lifecycle.IssueClearance).
func WriteClearancePDF(dir string, l *loan.Loan, employeeName string) (string, error) {
	if l.Clearance == nil {
		return "", fmt.Errorf("loan %s has no clearance record", l.ID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join(dir, l.Clearance.Reference+".pdf")

	completion := "full repayment"
	if l.Completion != nil && l.Completion.Method == loan.CompletionEarlySettlement {
		completion = "early settlement"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Loan Clearance Certificate")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Reference: %s", l.Clearance.Reference))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s (%s)", employeeName, l.EmployeeID))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Loan: %s (%s)", l.ID, l.Type))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Principal: %s", l.ApprovedAmount.StringFixed(2)))
	pdf.Ln(7)
	if l.Completion != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Completed: %s via %s",
			l.Completion.CompletedAt.Format("2006-01-02"), completion))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Issued: %s", l.Clearance.IssuedAt.Format("2006-01-02")))
	pdf.Ln(10)
	pdf.Cell(0, 8, "This certifies that the above loan has been settled in full")
	pdf.Ln(7)
	pdf.Cell(0, 8, "and the employee has no further obligation under it.")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", err
	}
	return filePath, nil
}
