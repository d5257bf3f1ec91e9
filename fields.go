package certgen

import (
	"strings"
	"time"

	"github.com/alnah/go-certgen/internal/dateutil"
)

// BuildFields returns the merge-field context of an office template.
// Missing request values map to empty strings; the renderer blanks
// anything else.
func BuildFields(req *Request, dates *dateutil.Formatter, now time.Time) map[string]any {
	student := req.StudentData
	if student == nil {
		student = &StudentData{}
	}
	name := strings.TrimSpace(student.Name)
	today := dates.Format(now)

	return map[string]any{
		"name":            name,
		"NAME":            strings.ToUpper(name),
		"nameUpper":       strings.ToUpper(name),
		"email":           strings.TrimSpace(student.Email),
		"registerNumber":  student.RegisterNumber.String(),
		"department":      student.Department.String(),
		"year":            student.Year.String(),
		"institutionName": student.InstitutionName.String(),
		"institution":     student.InstitutionName.String(),
		"city":            student.City.String(),
		"state":           student.State.String(),
		"pincode":         student.Pincode.String(),
		"title":           strings.TrimSpace(req.CourseData.Title),
		"courseTitle":     strings.TrimSpace(req.CourseData.Title),
		"startDate":       dates.Reformat(req.CourseData.StartDate.String()),
		"endDate":         dates.Reformat(req.CourseData.EndDate.String()),
		"date":            today,
		"today":           today,
		"certificateId":   req.CertificateID,
		"documentType":    req.DocumentType().String(),
	}
}

// joinNonEmpty joins the non-empty values with sep.
func joinNonEmpty(sep string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}
