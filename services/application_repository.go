package services

import (
	"context"
	"fmt"

	"github.com/mrb4ll0/itc-trainee-api/model"
	"github.com/mrb4ll0/itc-trainee-api/store"
)

// ApplicationRepository reads application documents. Applications are owned
// by the intake collaborator; this side only lists them and flips their
// status after migration, so there is no Save here.
type ApplicationRepository struct {
	docStore store.DocumentStore
}

// NewApplicationRepository creates an application repository
func NewApplicationRepository(docStore store.DocumentStore) *ApplicationRepository {
	return &ApplicationRepository{docStore: docStore}
}

// List returns every application for the company
func (r *ApplicationRepository) List(ctx context.Context, companyID string) ([]model.Application, error) {
	docs, err := r.docStore.GetAll(ctx, store.ApplicationCollection(companyID))
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	apps := make([]model.Application, 0, len(docs))
	for _, doc := range docs {
		apps = append(apps, DeserializeApplication(doc))
	}
	return apps, nil
}

// Get returns one application by id
func (r *ApplicationRepository) Get(ctx context.Context, companyID, id string) (*model.Application, error) {
	doc, err := r.docStore.Get(ctx, store.ApplicationCollection(companyID), id)
	if err != nil {
		return nil, err
	}
	app := DeserializeApplication(doc)
	return &app, nil
}

// DeserializeApplication decodes a stored application document. Applications
// are written by the intake frontend in camelCase; older records use
// snake_case, so every field accepts both spellings.
func DeserializeApplication(doc store.Document) model.Application {
	student := pickMap(doc, "student")
	duration := pickMap(doc, "duration")
	training := pickMap(doc, "training")

	return model.Application{
		ID:            pickString(doc, "id"),
		Status:        model.ApplicationStatus(pickString(doc, "status")),
		Progress:      pickNumber(doc, "progress"),
		OpportunityID: pickString(doc, "opportunity_id", "opportunityId"),
		Student: model.ApplicationStudent{
			UID:             pickString(student, "uid"),
			FullName:        pickString(student, "full_name", "fullName", "name"),
			Email:           pickString(student, "email"),
			Phone:           pickString(student, "phone"),
			Institution:     pickString(student, "institution"),
			CourseOfStudy:   pickString(student, "course_of_study", "courseOfStudy"),
			Department:      pickString(student, "department"),
			ApplicationDate: pickDate(student, "application_date", "applicationDate"),
		},
		Duration: model.ApplicationDuration{
			StartDate: pickDate(duration, "start_date", "startDate"),
			EndDate:   pickDate(duration, "end_date", "endDate"),
		},
		Training: model.ApplicationTraining{
			ID:          pickString(training, "id", "training_id", "trainingId"),
			Title:       pickString(training, "title"),
			Department:  pickString(training, "department"),
			Supervisor:  pickString(training, "supervisor"),
			CompanyID:   pickString(training, "company_id", "companyId"),
			CompanyName: pickString(training, "company_name", "companyName"),
		},
	}
}

func pickMap(doc map[string]interface{}, keys ...string) map[string]interface{} {
	for _, key := range keys {
		if m := docMap(doc, key); m != nil {
			return m
		}
	}
	return nil
}

func pickString(doc map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if doc == nil {
			return ""
		}
		if v, ok := doc[key]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func pickNumber(doc map[string]interface{}, keys ...string) float64 {
	for _, key := range keys {
		if doc == nil {
			return 0
		}
		if _, ok := doc[key]; ok {
			return docNumber(doc, key)
		}
	}
	return 0
}

// pickDate accepts every timestamp shape the store hands back and returns
// an ISO-8601 string
func pickDate(doc map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if doc == nil {
			return ""
		}
		if v, ok := doc[key]; ok && v != nil {
			if ts, ok := CoerceTimestamp(v); ok {
				return ts
			}
		}
	}
	return ""
}
