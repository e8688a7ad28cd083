package store

import "time"

type Contact struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	Company              string    `json:"company,omitempty"`
	Position             string    `json:"position,omitempty"`
	RelationshipLevel    string    `json:"relationship_level,omitempty"`
	InvestmentPreference []string  `json:"investment_preference"`
	Tags                 []string  `json:"tags"`
	Phone                string    `json:"phone,omitempty"`
	Email                string    `json:"email,omitempty"`
	Notes                string    `json:"notes,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (c *Contact) GetID() int64   { return c.ID }
func (c *Contact) SetID(id int64) { c.ID = id }

// Schedule is stored under schedule:{date}:{time_slot}:{id} so the key moves with the date and slot
type Schedule struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	TimeSlot  string    `json:"time_slot"`
	Item      string    `json:"item"`
	Urgency   string    `json:"urgency,omitempty"`
	Status    string    `json:"status"`
	ContactID int64     `json:"contact_id,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Schedule) GetID() int64   { return s.ID }
func (s *Schedule) SetID(id int64) { s.ID = id }

type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Owner       string    `json:"owner,omitempty"`
	StartDate   string    `json:"start_date,omitempty"`
	DueDate     string    `json:"due_date,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Project) GetID() int64   { return p.ID }
func (p *Project) SetID(id int64) { p.ID = id }

type Opportunity struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Company           string    `json:"company,omitempty"`
	ContactID         int64     `json:"contact_id,omitempty"`
	Stage             string    `json:"stage"`
	Amount            float64   `json:"amount"`
	Probability       int       `json:"probability"`
	ExpectedCloseDate string    `json:"expected_close_date,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	Tags              []string  `json:"tags"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (o *Opportunity) GetID() int64   { return o.ID }
func (o *Opportunity) SetID(id int64) { o.ID = id }

/*
	The *Input types are request bodies for create and update. A nil field was not sent and is left alone on
	update; slices use nil the same way, so `"tags": []` clears tags while leaving tags out keeps them.
*/

type ContactInput struct {
	Name                 *string  `json:"name"`
	Company              *string  `json:"company"`
	Position             *string  `json:"position"`
	RelationshipLevel    *string  `json:"relationship_level"`
	InvestmentPreference []string `json:"investment_preference"`
	Tags                 []string `json:"tags"`
	Phone                *string  `json:"phone"`
	Email                *string  `json:"email"`
	Notes                *string  `json:"notes"`
}

type ScheduleInput struct {
	Date      *string `json:"date"`
	TimeSlot  *string `json:"time_slot"`
	Item      *string `json:"item"`
	Urgency   *string `json:"urgency"`
	Status    *string `json:"status"`
	ContactID *int64  `json:"contact_id"`
	Notes     *string `json:"notes"`
}

type ProjectInput struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	Owner       *string  `json:"owner"`
	StartDate   *string  `json:"start_date"`
	DueDate     *string  `json:"due_date"`
	Tags        []string `json:"tags"`
}

type OpportunityInput struct {
	Title             *string  `json:"title"`
	Company           *string  `json:"company"`
	ContactID         *int64   `json:"contact_id"`
	Stage             *string  `json:"stage"`
	Amount            *float64 `json:"amount"`
	Probability       *int     `json:"probability"`
	ExpectedCloseDate *string  `json:"expected_close_date"`
	Notes             *string  `json:"notes"`
	Tags              []string `json:"tags"`
}

// ContactQuery filters ListContacts. Relationship and Company may be combined
type ContactQuery struct {
	Search       string
	Relationship string
	Company      string
	Offset       int
	Limit        int // 0 means DefaultContactLimit, negative means no limit
}

/*
	ScheduleQuery filters ListSchedules. Date wins over StartDate/EndDate; with neither the listing covers
	today and the following six days (UTC).
*/
type ScheduleQuery struct {
	Date      string
	StartDate string
	EndDate   string
	Urgency   string
	Search    string
	Offset    int
	Limit     int
}

type ProjectQuery struct {
	Search string
	Status string
	Offset int
	Limit  int
}

type OpportunityQuery struct {
	Search string
	Stage  string
	Offset int
	Limit  int
}
