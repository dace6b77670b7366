package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mrb4ll0/itc-trainee-api/model"
	"github.com/mrb4ll0/itc-trainee-api/store"
)

// dateFields are document keys holding date/timestamp values. Whatever shape
// the store hands back for these (native time, {seconds,nanoseconds} object,
// string, epoch number), they are persisted as ISO-8601 strings.
var dateFields = map[string]bool{
	"date":                true,
	"start_date":          true,
	"end_date":            true,
	"original_start_date": true,
	"application_date":    true,
	"created_at":          true,
	"updated_at":          true,
	"last_updated":        true,
	"completed_date":      true,
	"completed_at":        true,
	"recorded_at":         true,
	"migrated_at":         true,
	"date_of_birth":       true,
}

// SerializationError reports a sanitization post-condition violation: a value
// that was still missing after the document was built. This is a programming
// contract failure, not a recoverable runtime condition.
type SerializationError struct {
	Path string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialized trainee contains missing value at %s", e.Path)
}

// SerializeTrainee converts a trainee into a storage-safe document. Every
// known key is present with a typed value; date-like fields are ISO-8601
// strings. The whole tree is walked afterwards and any remaining nil fails
// the serialization outright.
func SerializeTrainee(t *model.Trainee) (store.Document, error) {
	doc := store.Document{
		"id":          sanitizeString(t.ID),
		"student_uid": sanitizeString(t.StudentUID),
		"student_info": map[string]interface{}{
			"full_name":        sanitizeString(t.StudentInfo.FullName),
			"email":            sanitizeString(t.StudentInfo.Email),
			"phone":            sanitizeString(t.StudentInfo.Phone),
			"institution":      sanitizeString(t.StudentInfo.Institution),
			"course_of_study":  sanitizeString(t.StudentInfo.CourseOfStudy),
			"department":       sanitizeString(t.StudentInfo.Department),
			"application_date": coerceDateString(t.StudentInfo.ApplicationDate),
		},
		"training_info": map[string]interface{}{
			"opportunity_id": sanitizeString(t.Training.OpportunityID),
			"training_id":    sanitizeString(t.Training.TrainingID),
			"title":          sanitizeString(t.Training.Title),
			"department":     sanitizeString(t.Training.Department),
			"company_id":     sanitizeString(t.Training.CompanyID),
			"company_name":   sanitizeString(t.Training.CompanyName),
			"supervisor":     sanitizeString(t.Training.Supervisor),
		},
		"duration": map[string]interface{}{
			"start_date":          coerceDateString(t.Duration.StartDate),
			"end_date":            coerceDateString(t.Duration.EndDate),
			"original_start_date": coerceDateString(t.Duration.OriginalStartDate),
			"extended":            t.Duration.Extended,
			"extension_reason":    sanitizeString(t.Duration.ExtensionReason),
		},
		"progress":    serializeProgress(t.Progress),
		"attendance":  serializeAttendance(t.Attendance),
		"bench_info":  serializeBench(t.Bench),
		"performance": serializePerformance(t.Performance),
		"metadata": map[string]interface{}{
			"created_at":    coerceDateString(t.Metadata.CreatedAt),
			"updated_at":    coerceDateString(t.Metadata.UpdatedAt),
			"status":        sanitizeString(string(t.Metadata.Status)),
			"migrated_from": sanitizeString(t.Metadata.MigratedFrom),
			"completed_at":  coerceDateString(t.Metadata.CompletedAt),
		},
		"migration": map[string]interface{}{
			"original_application_id": sanitizeString(t.Migration.OriginalApplicationID),
			"migrated_at":             coerceDateString(t.Migration.MigratedAt),
			"source":                  sanitizeString(t.Migration.Source),
			"version":                 sanitizeNumber(float64(t.Migration.Version)),
		},
	}

	if err := assertNoMissing(doc, ""); err != nil {
		return nil, err
	}
	return doc, nil
}

func serializeProgress(p model.TraineeProgress) map[string]interface{} {
	milestones := make([]interface{}, 0, len(p.Milestones))
	for _, m := range p.Milestones {
		milestones = append(milestones, map[string]interface{}{
			"id":             sanitizeString(m.ID),
			"name":           sanitizeString(m.Name),
			"completed":      m.Completed,
			"completed_date": coerceDateString(m.CompletedDate),
			"required":       m.Required,
		})
	}

	notes := make([]interface{}, 0, len(p.Notes))
	for _, n := range p.Notes {
		notes = append(notes, map[string]interface{}{
			"date":     coerceDateString(n.Date),
			"progress": sanitizeNumber(n.Progress),
			"note":     sanitizeString(n.Note),
		})
	}

	return map[string]interface{}{
		"overall":      sanitizeNumber(p.Overall),
		"last_updated": coerceDateString(p.LastUpdated),
		"milestones":   milestones,
		"notes":        notes,
	}
}

func serializeAttendance(a model.TraineeAttendance) map[string]interface{} {
	records := make([]interface{}, 0, len(a.Records))
	for _, r := range a.Records {
		records = append(records, map[string]interface{}{
			"date":        coerceDateString(r.Date),
			"status":      sanitizeString(string(r.Status)),
			"notes":       sanitizeString(r.Notes),
			"recorded_at": coerceDateString(r.RecordedAt),
		})
	}

	return map[string]interface{}{
		"total_days":      sanitizeNumber(float64(a.TotalDays)),
		"present_days":    sanitizeNumber(float64(a.PresentDays)),
		"absent_days":     sanitizeNumber(float64(a.AbsentDays)),
		"attendance_rate": sanitizeNumber(a.AttendanceRate),
		"records":         records,
	}
}

func serializeBench(b model.BenchInfo) map[string]interface{} {
	return map[string]interface{}{
		"current_bench": sanitizeString(string(b.CurrentBench)),
		"next_bench":    sanitizeString(string(b.NextBench)),
		"bench_history": stringSliceValue(b.BenchHistory),
		"skills":        stringSliceValue(b.Skills),
	}
}

func serializePerformance(p model.TraineePerformance) map[string]interface{} {
	feedback := make([]interface{}, 0, len(p.SupervisorFeedback))
	for _, fb := range p.SupervisorFeedback {
		feedback = append(feedback, map[string]interface{}{
			"date":       coerceDateString(fb.Date),
			"feedback":   sanitizeString(fb.Feedback),
			"rating":     sanitizeNumber(fb.Rating),
			"supervisor": sanitizeString(fb.Supervisor),
		})
	}

	return map[string]interface{}{
		"rating":              sanitizeNumber(p.Rating),
		"tasks_completed":     sanitizeNumber(float64(p.TasksCompleted)),
		"total_tasks":         sanitizeNumber(float64(p.TotalTasks)),
		"supervisor_feedback": feedback,
		"achievements":        stringSliceValue(p.Achievements),
	}
}

// DeserializeTrainee reconstructs a trainee from a stored document. Absent
// sub-objects become safe empty blocks so a partially-written or legacy
// document never crashes the reader.
func DeserializeTrainee(doc store.Document) *model.Trainee {
	t := &model.Trainee{
		ID:         docString(doc, "id"),
		StudentUID: docString(doc, "student_uid"),
	}

	if m := docMap(doc, "student_info"); m != nil {
		t.StudentInfo = model.StudentInfo{
			FullName:        docString(m, "full_name"),
			Email:           docString(m, "email"),
			Phone:           docString(m, "phone"),
			Institution:     docString(m, "institution"),
			CourseOfStudy:   docString(m, "course_of_study"),
			Department:      docString(m, "department"),
			ApplicationDate: docString(m, "application_date"),
		}
	}

	if m := docMap(doc, "training_info"); m != nil {
		t.Training = model.TrainingInfo{
			OpportunityID: docString(m, "opportunity_id"),
			TrainingID:    docString(m, "training_id"),
			Title:         docString(m, "title"),
			Department:    docString(m, "department"),
			CompanyID:     docString(m, "company_id"),
			CompanyName:   docString(m, "company_name"),
			Supervisor:    docString(m, "supervisor"),
		}
	}

	if m := docMap(doc, "duration"); m != nil {
		t.Duration = model.TraineeDuration{
			StartDate:         docString(m, "start_date"),
			EndDate:           docString(m, "end_date"),
			OriginalStartDate: docString(m, "original_start_date"),
			Extended:          docBool(m, "extended"),
			ExtensionReason:   docString(m, "extension_reason"),
		}
	}

	t.Progress = deserializeProgress(docMap(doc, "progress"))
	t.Attendance = deserializeAttendance(docMap(doc, "attendance"))
	t.Bench = deserializeBench(docMap(doc, "bench_info"))
	t.Performance = deserializePerformance(docMap(doc, "performance"))

	if m := docMap(doc, "metadata"); m != nil {
		t.Metadata = model.TraineeMetadata{
			CreatedAt:    docString(m, "created_at"),
			UpdatedAt:    docString(m, "updated_at"),
			Status:       model.TraineeStatus(docString(m, "status")),
			MigratedFrom: docString(m, "migrated_from"),
			CompletedAt:  docString(m, "completed_at"),
		}
	}
	if t.Metadata.Status == "" {
		t.Metadata.Status = model.TraineeStatusActive
	}

	if m := docMap(doc, "migration"); m != nil {
		t.Migration = model.MigrationInfo{
			OriginalApplicationID: docString(m, "original_application_id"),
			MigratedAt:            docString(m, "migrated_at"),
			Source:                docString(m, "source"),
			Version:               int(docNumber(m, "version")),
		}
	}

	return t
}

func deserializeProgress(m map[string]interface{}) model.TraineeProgress {
	p := model.TraineeProgress{
		Milestones: []model.Milestone{},
		Notes:      []model.ProgressNote{},
	}
	if m == nil {
		return p
	}

	p.Overall = docNumber(m, "overall")
	p.LastUpdated = docString(m, "last_updated")

	for _, item := range docSlice(m, "milestones") {
		im, ok := asMap(item)
		if !ok {
			continue
		}
		p.Milestones = append(p.Milestones, model.Milestone{
			ID:            docString(im, "id"),
			Name:          docString(im, "name"),
			Completed:     docBool(im, "completed"),
			CompletedDate: docString(im, "completed_date"),
			Required:      docBool(im, "required"),
		})
	}

	for _, item := range docSlice(m, "notes") {
		im, ok := asMap(item)
		if !ok {
			continue
		}
		p.Notes = append(p.Notes, model.ProgressNote{
			Date:     docString(im, "date"),
			Progress: docNumber(im, "progress"),
			Note:     docString(im, "note"),
		})
	}

	return p
}

func deserializeAttendance(m map[string]interface{}) model.TraineeAttendance {
	a := model.TraineeAttendance{Records: []model.AttendanceRecord{}}
	if m == nil {
		return a
	}

	a.TotalDays = int(docNumber(m, "total_days"))
	a.PresentDays = int(docNumber(m, "present_days"))
	a.AbsentDays = int(docNumber(m, "absent_days"))
	a.AttendanceRate = docNumber(m, "attendance_rate")

	for _, item := range docSlice(m, "records") {
		im, ok := asMap(item)
		if !ok {
			continue
		}
		a.Records = append(a.Records, model.AttendanceRecord{
			Date:       docString(im, "date"),
			Status:     model.AttendanceStatus(docString(im, "status")),
			Notes:      docString(im, "notes"),
			RecordedAt: docString(im, "recorded_at"),
		})
	}

	return a
}

func deserializeBench(m map[string]interface{}) model.BenchInfo {
	b := model.BenchInfo{
		CurrentBench: model.BenchBeginner,
		NextBench:    model.BenchIntermediate,
		BenchHistory: []string{},
		Skills:       []string{},
	}
	if m == nil {
		return b
	}

	if v := docString(m, "current_bench"); v != "" {
		b.CurrentBench = model.Bench(v)
	}
	if v := docString(m, "next_bench"); v != "" {
		b.NextBench = model.Bench(v)
	}
	b.BenchHistory = docStringSlice(m, "bench_history")
	b.Skills = docStringSlice(m, "skills")

	return b
}

func deserializePerformance(m map[string]interface{}) model.TraineePerformance {
	p := model.TraineePerformance{
		SupervisorFeedback: []model.SupervisorFeedback{},
		Achievements:       []string{},
	}
	if m == nil {
		return p
	}

	p.Rating = docNumber(m, "rating")
	p.TasksCompleted = int(docNumber(m, "tasks_completed"))
	p.TotalTasks = int(docNumber(m, "total_tasks"))
	p.Achievements = docStringSlice(m, "achievements")

	for _, item := range docSlice(m, "supervisor_feedback") {
		im, ok := asMap(item)
		if !ok {
			continue
		}
		p.SupervisorFeedback = append(p.SupervisorFeedback, model.SupervisorFeedback{
			Date:       docString(im, "date"),
			Feedback:   docString(im, "feedback"),
			Rating:     docNumber(im, "rating"),
			Supervisor: docString(im, "supervisor"),
		})
	}

	return p
}

// ---- value coercion ----

func sanitizeString(v string) string {
	return v
}

func sanitizeNumber(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func stringSliceValue(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

// coerceDateString normalizes a date-like string to ISO-8601. A value the
// parser cannot make sense of passes through unchanged rather than being
// destroyed.
func coerceDateString(v string) string {
	if v == "" {
		return ""
	}
	if t, ok := model.ParseDate(v); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return v
}

// CoerceTimestamp converts any store-supported timestamp shape to an
// ISO-8601 string: time.Time, {seconds,nanoseconds} map, string, or epoch
// number (seconds, or milliseconds when implausibly large for seconds).
func CoerceTimestamp(v interface{}) (string, bool) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339), true
	case string:
		return coerceDateString(val), true
	case map[string]interface{}:
		if !isTimestampLike(val) {
			return "", false
		}
		sec := int64(toFloat(val["seconds"]))
		nsec := int64(toFloat(val["nanoseconds"]))
		return time.Unix(sec, nsec).UTC().Format(time.RFC3339), true
	case float64, float32, int, int32, int64:
		f := toFloat(val)
		sec := int64(f)
		if sec > 1e11 { // epoch milliseconds
			return time.UnixMilli(sec).UTC().Format(time.RFC3339), true
		}
		return time.Unix(sec, 0).UTC().Format(time.RFC3339), true
	default:
		return "", false
	}
}

func isTimestampLike(m map[string]interface{}) bool {
	if len(m) != 2 {
		return false
	}
	_, hasSec := m["seconds"]
	_, hasNsec := m["nanoseconds"]
	return hasSec && hasNsec
}

// assertNoMissing walks the document tree and fails on the first nil value.
// Hard post-condition of serialization.
func assertNoMissing(v interface{}, path string) error {
	switch val := v.(type) {
	case nil:
		return &SerializationError{Path: strings.TrimPrefix(path, ".")}
	case map[string]interface{}:
		for k, item := range val {
			if err := assertNoMissing(item, path+"."+k); err != nil {
				return err
			}
		}
	case []interface{}:
		for i, item := range val {
			if err := assertNoMissing(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ---- document read helpers ----

func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func docMap(doc map[string]interface{}, key string) map[string]interface{} {
	if doc == nil {
		return nil
	}
	m, _ := asMap(doc[key])
	return m
}

func docString(doc map[string]interface{}, key string) string {
	if doc == nil {
		return ""
	}
	v, ok := doc[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		if dateFields[key] {
			return coerceDateString(s)
		}
		return s
	}
	// Timestamp-like values are the only non-string shapes turned into strings
	if ts, ok := CoerceTimestamp(v); ok && (dateFields[key] || isTimestampValue(v)) {
		return ts
	}
	return ""
}

func isTimestampValue(v interface{}) bool {
	switch val := v.(type) {
	case time.Time:
		return true
	case map[string]interface{}:
		return isTimestampLike(val)
	default:
		return false
	}
}

func docBool(doc map[string]interface{}, key string) bool {
	if doc == nil {
		return false
	}
	b, _ := doc[key].(bool)
	return b
}

func docNumber(doc map[string]interface{}, key string) float64 {
	if doc == nil {
		return 0
	}
	f := toFloat(doc[key])
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func docSlice(doc map[string]interface{}, key string) []interface{} {
	if doc == nil {
		return nil
	}
	s, _ := doc[key].([]interface{})
	return s
}

func docStringSlice(doc map[string]interface{}, key string) []string {
	out := []string{}
	for _, item := range docSlice(doc, key) {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
