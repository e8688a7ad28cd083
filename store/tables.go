package store

import "github.com/osr-alliance/backend-crm/storage"

// index names used with storage.SelectOptions
const (
	ContactsByCompany      = "company"
	ContactsByRelationship = "relationship"

	SchedulesByDate    = "date"
	SchedulesByUrgency = "urgency"

	ProjectsByStatus = "status"

	OpportunitiesByStage   = "stage"
	OpportunitiesByCompany = "company"
)

// tables returns fresh table definitions; storage.New fills in private state on each of them
func tables() []*storage.Table {
	return []*storage.Table{
		{
			Struct:     Contact{},
			Key:        "contact:%v",
			CounterKey: "counters:contact_id",
			AllKey:     "contacts:all",
			Indexes: []*storage.Index{
				{Name: ContactsByCompany, Key: "contacts:by_company:%v", Field: "company"},
				{Name: ContactsByRelationship, Key: "contacts:by_relationship:%v", Field: "relationship_level"},
			},
			SearchFields: []string{"name", "company", "position"},
		},
		{
			Struct:     Schedule{},
			Key:        "schedule:%v:%v:%v",
			KeyFields:  []string{"date", "time_slot", "id"},
			LookupKey:  "schedules:keys",
			CounterKey: "counters:schedule_id",
			AllKey:     "schedules:all",
			Indexes: []*storage.Index{
				{Name: SchedulesByDate, Key: "schedules:by_date:%v", Field: "date"},
				{Name: SchedulesByUrgency, Key: "schedules:by_urgency:%v", Field: "urgency"},
			},
			// schedule sets hold storage keys, not ids
			MembersAreKeys: true,
			SearchFields:   []string{"item", "notes"},
			SortFields:     []string{"date", "time_slot"},
		},
		{
			Struct:     Project{},
			Key:        "project:%v",
			CounterKey: "counters:project_id",
			AllKey:     "projects:all",
			Indexes: []*storage.Index{
				{Name: ProjectsByStatus, Key: "projects:by_status:%v", Field: "status"},
			},
			SearchFields: []string{"name", "description", "owner"},
		},
		{
			Struct:     Opportunity{},
			Key:        "opportunity:%v",
			CounterKey: "counters:opportunity_id",
			AllKey:     "opportunities:all",
			Indexes: []*storage.Index{
				{Name: OpportunitiesByStage, Key: "opportunities:by_stage:%v", Field: "stage"},
				{Name: OpportunitiesByCompany, Key: "opportunities:by_company:%v", Field: "company"},
			},
			SearchFields: []string{"title", "company", "notes"},
		},
	}
}
